// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fintrack/fintrack/internal/domain/types"
)

// IdentityHandler adapts the external identity provider boundary: login and
// logout are the only reload triggers the engine recognizes.
type IdentityHandler struct {
	deps Dependencies
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(deps Dependencies) *IdentityHandler {
	return &IdentityHandler{deps: deps}
}

type identityRequest struct {
	ID        string `json:"id"`
	Anonymous bool   `json:"anonymous"`
}

// HandleIdentity handles POST /identity (login / identity switch) and
// DELETE /identity (logout).
func (h *IdentityHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req identityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if strings.TrimSpace(req.ID) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		id := types.Identity{ID: req.ID, Anonymous: req.Anonymous}
		if err := h.deps.SetIdentity(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":   h.deps.State().String(),
			"hasData": h.deps.HasData(),
		})
	case http.MethodDelete:
		if err := h.deps.SetIdentity(r.Context(), types.Identity{}); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"state": h.deps.State().String()})
	default:
		http.NotFound(w, r)
	}
}
