// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/fintrack/fintrack/internal/domain/transfer"
)

// maxImportBytes bounds import request bodies.
const maxImportBytes = 16 << 20

// TransferHandler serves full-set backup and restore.
type TransferHandler struct {
	deps Dependencies
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(deps Dependencies) *TransferHandler {
	return &TransferHandler{deps: deps}
}

// HandleExport handles GET /export requests with a downloadable document.
func (h *TransferHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	data, err := h.deps.ExportAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="finance-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type importResponse struct {
	Status string `json:"status"`
	Months int    `json:"months"`
}

// HandleImport handles POST /import requests. The uploaded document fully
// replaces the record set; a malformed document changes nothing.
func (h *TransferHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.ImportAll(r.Context(), body); err != nil {
		if errors.Is(err, transfer.ErrMalformedDocument) {
			writeError(w, http.StatusBadRequest, "malformed_document", err)
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Status: "imported", Months: len(h.deps.Snapshot())})
}
