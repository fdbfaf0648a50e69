// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/empathy/internal/adapters/repository"
	"github.com/okian/empathy/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecordsDependencies
	EmployeesDependencies
	StatsProvider
}

// Readiness reports whether the snapshot has been loaded.
type Readiness interface {
	Loaded() bool
}

// RecordsDependencies defines the risk table read operations.
type RecordsDependencies interface {
	Readiness
	RiskTable(ctx context.Context, f repository.Filter) (types.RiskTable, error)
	HighRiskRows(ctx context.Context, f repository.Filter) (string, []types.RiskRow, error)
	Filters(ctx context.Context) (types.FilterOptions, error)
}

// EmployeesDependencies defines the per-employee read operations.
type EmployeesDependencies interface {
	Readiness
	History(ctx context.Context, employeeID string) (types.EmployeeHistory, error)
	Nudges(ctx context.Context, employeeID, week string) (types.EmployeeNudges, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recordsHandler   *RecordsHandler
	employeesHandler *EmployeesHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// rows a single risk table request may ask for.
func NewServer(deps Dependencies, maxLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		recordsHandler:   NewRecordsHandler(deps, maxLimit),
		employeesHandler: NewEmployeesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/filters", MetricsMiddleware(s.recordsHandler.HandleGetFilters, "filters"))
	mux.HandleFunc("/records", MetricsMiddleware(s.recordsHandler.HandleGetRecords, "records"))
	mux.HandleFunc("/records/high-risk.csv", MetricsMiddleware(s.recordsHandler.HandleExportHighRisk, "records_export"))
	mux.HandleFunc("/employees/", MetricsMiddleware(s.employeesHandler.HandleGetEmployee, "employees"))
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

// writeFailure translates an upstream error to a status code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// ready writes 503 and returns false until the snapshot is loaded.
func ready(w http.ResponseWriter, deps Readiness, op string) bool {
	if deps.Loaded() {
		return true
	}
	writeFailure(w, op, ErrNotReady)
	return false
}
