// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/snapshot"
	"github.com/fintrack/fintrack/internal/domain/types"
	"github.com/fintrack/fintrack/pkg/metrics"
)

// SnapshotHandler issues and resolves read-only share tokens.
type SnapshotHandler struct {
	deps Dependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps Dependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

type createSnapshotRequest struct {
	Month string `json:"month"`
}

type createSnapshotResponse struct {
	Token string `json:"token"`
	Path  string `json:"path"`
}

// HandleCreate handles POST /snapshot requests. The issued token is a
// detached copy of the month as it is right now; later edits do not
// propagate into it.
func (h *SnapshotHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !types.ValidMonthKey(req.Month) {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadMonthKey)
		return
	}
	token, err := snapshot.Encode(req.Month, h.deps.Month(req.Month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	metrics.RecordSnapshotEncode()
	writeJSON(w, http.StatusOK, createSnapshotResponse{Token: token, Path: "/snapshot/" + token})
}

type decodedSnapshotResponse struct {
	Month  string              `json:"month"`
	Record model.MonthlyRecord `json:"record"`
}

// HandleDecode handles GET /snapshot/{token} requests. An invalid token is
// a user-facing "invalid link" outcome, never an internal fault.
func (h *SnapshotHandler) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/snapshot/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	month, rec, err := snapshot.Decode(token)
	if err != nil {
		metrics.RecordSnapshotDecode(false)
		if errors.Is(err, snapshot.ErrDecode) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_link", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	metrics.RecordSnapshotDecode(true)
	writeJSON(w, http.StatusOK, decodedSnapshotResponse{Month: month, Record: rec})
}
