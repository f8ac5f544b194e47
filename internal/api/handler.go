// Package api provides HTTP handlers for the chat widget API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/scripture-chat/internal/config"
	"github.com/ashureev/scripture-chat/internal/identity"
	"github.com/ashureev/scripture-chat/internal/pages"
	"github.com/ashureev/scripture-chat/internal/widget"
)

// Handler provides common handler utilities.
type Handler struct {
	registry *pages.Registry
	persona  config.Persona
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(registry *pages.Registry, persona config.Persona) *Handler {
	return &Handler{
		registry: registry,
		persona:  persona,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// page resolves the widget addressed by the request and writes an error
// response when there is none.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (*widget.Widget, bool) {
	pageID := identity.PageIDFromContext(r.Context())
	if pageID == "" {
		Error(w, http.StatusBadRequest, "missing page id")
		return nil, false
	}
	wdg, err := h.registry.Get(pageID)
	if errors.Is(err, pages.ErrPageNotFound) {
		Error(w, http.StatusNotFound, "page not found")
		return nil, false
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return wdg, true
}
