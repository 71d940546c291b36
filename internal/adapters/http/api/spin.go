package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/gamespin/internal/domain/gate"
	"github.com/okian/gamespin/pkg/logger"
)

// SpinHandler serves the status check and the authorization request.
type SpinHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	log          logger.Logger
}

// NewSpinHandler creates a spin handler.
func NewSpinHandler(deps Dependencies, maxBodyBytes int64, log logger.Logger) *SpinHandler {
	return &SpinHandler{deps: deps, maxBodyBytes: maxBodyBytes, log: log}
}

type spinRequest struct {
	Username string `json:"username"`
}

type spinCheckResponse struct {
	CanSpin     bool  `json:"canSpin"`
	RemainingMs int64 `json:"remainingMs"`
}

type spinGrantedResponse struct {
	Success      bool      `json:"success"`
	SpinID       string    `json:"spinId"`
	AuthorizedAt time.Time `json:"authorizedAt"`
}

type spinDeniedResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Message     string `json:"message"`
	RemainingMs int64  `json:"remainingMs"`
}

// HandleSpinCheck handles GET /api/spin-check?username=.
func (h *SpinHandler) HandleSpinCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.spin_check"
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		fail(r.Context(), h.log, w, NewKind(op, ErrBadRequest))
		return
	}

	st, err := h.deps.CheckStatus(r.Context(), username)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, spinCheckResponse{
		CanSpin:     st.CanSpin,
		RemainingMs: gate.Millis(st.Remaining),
	})
}

// HandleSpin handles POST /api/spin. A cooldown denial is 429 with the
// remaining wait.
func (h *SpinHandler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	const op = "api.spin"
	var req spinRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		fail(r.Context(), h.log, w, NewKind(op, ErrBadRequest))
		return
	}

	d, err := h.deps.Authorize(r.Context(), req.Username)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if !d.Granted {
		writeJSON(w, http.StatusTooManyRequests, spinDeniedResponse{
			Error:       codeCooldownActive,
			Message:     ErrCooldownActive.Error(),
			RemainingMs: gate.Millis(d.Remaining),
		})
		return
	}
	writeJSON(w, http.StatusOK, spinGrantedResponse{
		Success:      true,
		SpinID:       d.SpinID,
		AuthorizedAt: d.AuthorizedAt,
	})
}
