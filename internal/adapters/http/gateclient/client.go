// Package gateclient is a typed HTTP client for the spin gate API.
package gateclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/logger"
)

const (
	defaultTimeout  = 3 * time.Second
	maxResponseBody = 1 << 20
)

// Outcome is the answer to an authorization request.
type Outcome int

// Authorization outcomes.
const (
	OutcomeGranted Outcome = iota
	OutcomeCooldown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Grant is the gate's decision on a spin.
type Grant struct {
	Outcome      Outcome
	SpinID       string
	AuthorizedAt time.Time
	// Remaining is set for OutcomeCooldown.
	Remaining time.Duration
}

// Status is a read-only eligibility answer.
type Status struct {
	CanSpin   bool
	Remaining time.Duration
}

// Client talks to one gate server.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	log     logger.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", ErrValidation, baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{},
		timeout: defaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type identityBody struct {
	Username string `json:"username"`
}

type spinBody struct {
	Success      bool      `json:"success"`
	SpinID       string    `json:"spinId"`
	AuthorizedAt time.Time `json:"authorizedAt"`
	Error        string    `json:"error"`
	RemainingMs  int64     `json:"remainingMs"`
}

type statusBody struct {
	CanSpin     bool  `json:"canSpin"`
	RemainingMs int64 `json:"remainingMs"`
}

type catalogBody struct {
	Entries []model.Entry `json:"entries"`
}

// Authorize asks the gate for a spin. A cooldown refusal is not an error.
func (c *Client) Authorize(ctx context.Context, identity string) (Grant, error) {
	var body spinBody
	status, err := c.do(ctx, http.MethodPost, "/api/spin", nil, identityBody{Username: identity}, &body)
	if err != nil {
		return Grant{}, err
	}

	switch status {
	case http.StatusOK:
		return Grant{Outcome: OutcomeGranted, SpinID: body.SpinID, AuthorizedAt: body.AuthorizedAt}, nil
	case http.StatusTooManyRequests:
		return Grant{Outcome: OutcomeCooldown, Remaining: time.Duration(body.RemainingMs) * time.Millisecond}, nil
	default:
		return Grant{}, statusError(status)
	}
}

// Status reports whether identity may spin without consuming anything.
func (c *Client) Status(ctx context.Context, identity string) (Status, error) {
	var body statusBody
	status, err := c.do(ctx, http.MethodGet, "/api/spin-check", url.Values{"username": {identity}}, nil, &body)
	if err != nil {
		return Status{}, err
	}
	if status != http.StatusOK {
		return Status{}, statusError(status)
	}
	return Status{CanSpin: body.CanSpin, Remaining: time.Duration(body.RemainingMs) * time.Millisecond}, nil
}

// LoadProfile fetches the stored profile. found is false when the server
// has none.
func (c *Client) LoadProfile(ctx context.Context, identity string) (model.Profile, bool, error) {
	var p model.Profile
	status, err := c.do(ctx, http.MethodGet, "/api/user", url.Values{"username": {identity}}, nil, &p)
	if err != nil {
		return model.Profile{}, false, err
	}
	if status != http.StatusOK {
		return model.Profile{}, false, statusError(status)
	}
	if p.Username == "" {
		return model.Profile{}, false, nil
	}
	return p, true, nil
}

// SaveProfile replaces the stored profile.
func (c *Client) SaveProfile(ctx context.Context, p model.Profile) error {
	status, err := c.do(ctx, http.MethodPost, "/api/user", nil, p, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return statusError(status)
	}
	return nil
}

// Catalog fetches the server's catalog.
func (c *Client) Catalog(ctx context.Context) ([]model.Entry, error) {
	var body catalogBody
	status, err := c.do(ctx, http.MethodGet, "/api/catalog", nil, nil, &body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status)
	}
	return body.Entries, nil
}

func statusError(status int) error {
	switch {
	case status == http.StatusServiceUnavailable:
		return ErrUnavailable
	case status == http.StatusBadRequest, status == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: status %d", ErrValidation, status)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrServer, status)
	default:
		return fmt.Errorf("%w: status %d", ErrUnexpected, status)
	}
}

// do sends one request and decodes a JSON body into out when the status
// carries one. Transport failures map to ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.base
	u.Path = c.base.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "gate request failed", logger.String("path", path), logger.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	c.log.Debug(ctx, "gate response",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
	)

	if out == nil || !decodable(resp.StatusCode) {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	return resp.StatusCode, nil
}

func decodable(status int) bool {
	return status == http.StatusOK || status == http.StatusTooManyRequests
}

// IsTransient reports whether err leaves the gate's decision unknown
// rather than negative.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrServer)
}
