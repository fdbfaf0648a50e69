package api

import (
	"net/http"
	"strings"

	"github.com/okian/empathy/internal/domain/model"
)

// EmployeesHandler serves per-employee history and nudges.
type EmployeesHandler struct {
	deps EmployeesDependencies
}

// NewEmployeesHandler creates a new employees handler.
func NewEmployeesHandler(deps EmployeesDependencies) *EmployeesHandler {
	return &EmployeesHandler{deps: deps}
}

// HandleGetEmployee handles GET /employees/{id}/history and
// GET /employees/{id}/nudges?week=YYYY-MM-DD.
//
// An unknown employee or week is not an error: the body carries found=false.
func (h *EmployeesHandler) HandleGetEmployee(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_employee"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract {id}/{view} after /employees/
	path := strings.TrimPrefix(r.URL.Path, "/employees/")
	id, view, ok := strings.Cut(path, "/")
	if !ok || strings.TrimSpace(id) == "" || strings.Contains(view, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if !ready(w, h.deps, op) {
		return
	}

	switch view {
	case "history":
		hist, err := h.deps.History(r.Context(), id)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, hist)
	case "nudges":
		week := strings.TrimSpace(r.URL.Query().Get("week"))
		if week != "" {
			if _, err := model.ParseWeek(week); err != nil {
				writeFailure(w, op, badRequest(op, "invalid week %q; want YYYY-MM-DD", week))
				return
			}
		}
		nudges, err := h.deps.Nudges(r.Context(), id, week)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, nudges)
	default:
		http.NotFound(w, r)
	}
}
