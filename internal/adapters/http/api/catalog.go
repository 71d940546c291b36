package api

import (
	"net/http"

	"github.com/okian/gamespin/internal/domain/model"
)

// CatalogHandler serves the entry catalog.
type CatalogHandler struct {
	deps Dependencies
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(deps Dependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

type catalogResponse struct {
	Entries []model.Entry `json:"entries"`
}

// HandleCatalog handles GET /api/catalog.
func (h *CatalogHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	entries := h.deps.Catalog()
	if entries == nil {
		entries = []model.Entry{}
	}
	writeJSON(w, http.StatusOK, catalogResponse{Entries: entries})
}
