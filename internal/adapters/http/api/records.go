package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/empathy/internal/adapters/export"
	"github.com/okian/empathy/internal/adapters/repository"
	"github.com/okian/empathy/internal/domain/model"
)

// RecordsHandler serves the risk table, its filter options and the export.
type RecordsHandler struct {
	deps     RecordsDependencies
	maxLimit int
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordsDependencies, maxLimit int) *RecordsHandler {
	return &RecordsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetRecords handles GET /records?week=&country=&team=&label=&limit=.
// country, team and label may repeat or hold comma-separated values.
func (h *RecordsHandler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_records"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if !ready(w, h.deps, op) {
		return
	}
	f, err := parseFilter(op, r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if f.Limit == 0 {
		f.Limit = h.maxLimit
	}
	if f.Limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	table, err := h.deps.RiskTable(r.Context(), f)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// HandleExportHighRisk handles GET /records/high-risk.csv with the same
// filters as /records. limit is ignored.
func (h *RecordsHandler) HandleExportHighRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_high_risk"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if !ready(w, h.deps, op) {
		return
	}
	f, err := parseFilter(op, r.URL.Query())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	week, rows, err := h.deps.HighRiskRows(r.Context(), f)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.HighRiskFileName(week)+`"`)
	w.WriteHeader(http.StatusOK)
	_ = export.WriteCSV(w, rows)
}

// HandleGetFilters handles GET /filters.
func (h *RecordsHandler) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_filters"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if !ready(w, h.deps, op) {
		return
	}
	opts, err := h.deps.Filters(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func parseFilter(op string, q url.Values) (repository.Filter, error) {
	f := repository.Filter{
		Week:      strings.TrimSpace(q.Get("week")),
		Countries: multi(q["country"]),
		Teams:     multi(q["team"]),
	}
	if f.Week != "" {
		if _, err := model.ParseWeek(f.Week); err != nil {
			return f, badRequest(op, "invalid week %q; want YYYY-MM-DD", f.Week)
		}
	}
	for _, raw := range multi(q["label"]) {
		l, err := parseLabel(raw)
		if err != nil {
			return f, badRequest(op, "invalid label %q", raw)
		}
		f.Labels = append(f.Labels, l)
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, badRequest(op, "invalid limit %q", raw)
		}
		f.Limit = n
	}
	return f, nil
}

// parseLabel accepts a class index (0, 1, 2) or its name.
func parseLabel(raw string) (model.RiskLabel, error) {
	for l := model.RiskLow; l <= model.RiskHigh; l++ {
		if strings.EqualFold(raw, l.String()) {
			return l, nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !model.RiskLabel(n).Valid() {
		return 0, ErrBadRequest
	}
	return model.RiskLabel(n), nil
}

// multi flattens repeated and comma-separated values, dropping blanks.
func multi(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
