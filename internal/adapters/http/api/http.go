// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/gamespin/internal/domain/catalog"
	"github.com/okian/gamespin/internal/domain/gate"
	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Pinger

	Authorize(ctx context.Context, identity string) (gate.Decision, error)
	CheckStatus(ctx context.Context, identity string) (gate.Status, error)

	// LoadProfile reports found=false for identities without a profile.
	LoadProfile(ctx context.Context, identity string) (p model.Profile, found bool, err error)
	SaveProfile(ctx context.Context, p model.Profile) error

	Catalog() []model.Entry
}

// Error codes written in JSON error bodies.
const (
	codeBadRequest       = "bad_request"
	codeCooldownActive   = "cooldown_active"
	codeStoreUnavailable = "store_unavailable"
	codeTimeout          = "timeout"
	codeInternal         = "internal"
	codeTooLarge         = "payload_too_large"
)

// Server wires HTTP routes for the business API.
type Server struct {
	deps Dependencies
	log  logger.Logger

	allowedOrigins []string
	maxBodyBytes   int64
	requestTimeout time.Duration

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	spinHandler    *SpinHandler
	userHandler    *UserHandler
	catalogHandler *CatalogHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		log:            logger.Nop(),
		allowedOrigins: []string{"*"},
		maxBodyBytes:   64 << 10,
		requestTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.spinHandler = NewSpinHandler(deps, s.maxBodyBytes, s.log)
	s.userHandler = NewUserHandler(deps, s.maxBodyBytes, s.log)
	s.catalogHandler = NewCatalogHandler(deps)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout))
		r.Get("/spin-check", MetricsMiddleware(s.spinHandler.HandleSpinCheck, "spin_check"))
		r.Post("/spin", MetricsMiddleware(s.spinHandler.HandleSpin, "spin"))
		r.Get("/user", MetricsMiddleware(s.userHandler.HandleGetUser, "user_get"))
		r.Post("/user", MetricsMiddleware(s.userHandler.HandlePostUser, "user_post"))
		r.Get("/catalog", MetricsMiddleware(s.catalogHandler.HandleCatalog, "catalog"))
	})
}

// Router builds a chi router with every route registered.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps a domain error to its status and code. Server-side faults are
// logged; their details are not echoed to the client.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, gate.ErrInvalidIdentity),
		errors.Is(err, catalog.ErrUnknownEntry):
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
	case errors.Is(err, gate.ErrStoreUnavailable):
		log.Warn(ctx, "store unavailable", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, ErrStoreNotReady)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeTimeout, nil)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, nil)
	}
}

// decodeJSON reads at most limit bytes of JSON into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, limit)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
