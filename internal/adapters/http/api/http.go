// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	app "github.com/fintrack/fintrack/internal/app"
	"github.com/fintrack/fintrack/internal/adapters/repository"
	"github.com/fintrack/fintrack/internal/domain/advice"
	"github.com/fintrack/fintrack/internal/domain/model"
	"github.com/fintrack/fintrack/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the engine implementation.
type Dependencies interface {
	SetIdentity(ctx context.Context, id types.Identity) error
	Identity() types.Identity
	State() app.State
	FailureKind() app.FailKind
	LastError() error

	HasData() bool
	Snapshot() model.RecordSet
	Month(key string) model.MonthlyRecord
	HasMonth(key string) bool
	UpdateMonth(ctx context.Context, key string, rec model.MonthlyRecord) error
	Retry(ctx context.Context) error

	ExportAll() ([]byte, error)
	ImportAll(ctx context.Context, data []byte) error
	ClearAll(ctx context.Context) error
	Aggregates(key string) advice.Aggregates
}

// Server wires HTTP routes for the record-set API.
type Server struct {
	healthHandler   *HealthHandler
	statusHandler   *StatusHandler
	monthsHandler   *MonthsHandler
	snapshotHandler *SnapshotHandler
	transferHandler *TransferHandler
	identityHandler *IdentityHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statusHandler:   NewStatusHandler(deps),
		monthsHandler:   NewMonthsHandler(deps, advice.NoopProvider{}),
		snapshotHandler: NewSnapshotHandler(deps),
		transferHandler: NewTransferHandler(deps),
		identityHandler: NewIdentityHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleHealth)
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/retry", MetricsMiddleware(s.statusHandler.HandleRetry, "retry"))
	mux.HandleFunc("/clear", MetricsMiddleware(s.statusHandler.HandleClear, "clear"))
	mux.HandleFunc("/identity", MetricsMiddleware(s.identityHandler.HandleIdentity, "identity"))
	mux.HandleFunc("/months", MetricsMiddleware(s.monthsHandler.HandleMonths, "months"))
	mux.HandleFunc("/months/", MetricsMiddleware(s.monthsHandler.HandleMonth, "month"))
	mux.HandleFunc("/snapshot", MetricsMiddleware(s.snapshotHandler.HandleCreate, "snapshot_create"))
	mux.HandleFunc("/snapshot/", MetricsMiddleware(s.snapshotHandler.HandleDecode, "snapshot_decode"))
	mux.HandleFunc("/export", MetricsMiddleware(s.transferHandler.HandleExport, "export"))
	mux.HandleFunc("/import", MetricsMiddleware(s.transferHandler.HandleImport, "import"))
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

// writeEngineError translates engine and store errors into HTTP responses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidMonthKey):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, app.ErrLoading), errors.Is(err, app.ErrNoIdentity):
		writeError(w, http.StatusConflict, "not_ready", err)
	case errors.Is(err, repository.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
