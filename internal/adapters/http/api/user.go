package api

import (
	"net/http"
	"strings"

	"github.com/okian/gamespin/internal/domain/model"
	"github.com/okian/gamespin/pkg/logger"
)

// UserHandler serves profile load and replace.
type UserHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	log          logger.Logger
}

// NewUserHandler creates a profile handler.
func NewUserHandler(deps Dependencies, maxBodyBytes int64, log logger.Logger) *UserHandler {
	return &UserHandler{deps: deps, maxBodyBytes: maxBodyBytes, log: log}
}

type saveResponse struct {
	Success bool `json:"success"`
}

// HandleGetUser handles GET /api/user?username=. Unknown users get {}.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		fail(r.Context(), h.log, w, NewKind(op, ErrBadRequest))
		return
	}

	p, found, err := h.deps.LoadProfile(r.Context(), username)
	if err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePostUser handles POST /api/user, replacing the stored profile.
func (h *UserHandler) HandlePostUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_user"
	var p model.Profile
	if err := decodeJSON(w, r, h.maxBodyBytes, &p); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	if strings.TrimSpace(p.Username) == "" {
		fail(r.Context(), h.log, w, NewKind(op, ErrBadRequest))
		return
	}

	if err := h.deps.SaveProfile(r.Context(), p); err != nil {
		fail(r.Context(), h.log, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true})
}
