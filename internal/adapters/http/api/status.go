// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatusHandler exposes the engine's persistence state and recovery actions.
type StatusHandler struct {
	deps Dependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps Dependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

type statusResponse struct {
	State       string `json:"state"`
	FailureKind string `json:"failureKind,omitempty"`
	Error       string `json:"error,omitempty"`
	HasData     bool   `json:"hasData"`
	Months      int    `json:"months"`
	Identity    string `json:"identity,omitempty"`
	Anonymous   bool   `json:"anonymous"`
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := statusResponse{
		State:       h.deps.State().String(),
		FailureKind: string(h.deps.FailureKind()),
		HasData:     h.deps.HasData(),
		Months:      len(h.deps.Snapshot()),
		Identity:    h.deps.Identity().ID,
		Anonymous:   h.deps.Identity().Anonymous,
	}
	if err := h.deps.LastError(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRetry handles POST /retry requests: the manual re-attempt of a
// failed load/save/clear. There is no automatic retry.
func (h *StatusHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Retry(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": h.deps.State().String()})
}

// HandleClear handles POST /clear requests, wiping the identity's data.
func (h *StatusHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.ClearAll(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": h.deps.State().String()})
}
