package service

import (
	"context"
	"math"
	"strings"

	"github.com/okian/empathy/internal/adapters/export"
	"github.com/okian/empathy/internal/adapters/repository"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	"github.com/okian/empathy/internal/domain/types"
)

// RiskTable returns one week of the risk table. KPIs describe the whole
// filtered view; f.Limit only trims the returned rows.
func (s *Service) RiskTable(ctx context.Context, f repository.Filter) (types.RiskTable, error) {
	entries, week, err := s.query(ctx, f)
	if err != nil {
		return types.RiskTable{}, err
	}

	table := types.RiskTable{Week: week, KPIs: kpis(entries), Rows: []types.RiskRow{}}
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	for i := range entries {
		table.Rows = append(table.Rows, row(&entries[i]))
	}
	return table, nil
}

// HighRiskRows returns the high-risk subset of the filtered week for export.
// The limit is ignored so the export always covers the full view.
func (s *Service) HighRiskRows(ctx context.Context, f repository.Filter) (string, []types.RiskRow, error) {
	f.Limit = 0
	table, err := s.RiskTable(ctx, f)
	if err != nil {
		return "", nil, err
	}
	return table.Week, export.HighRisk(table.Rows), nil
}

// Filters returns the distinct weeks, countries and teams of the snapshot.
func (s *Service) Filters(ctx context.Context) (types.FilterOptions, error) {
	if !s.Loaded() {
		return types.FilterOptions{}, ErrNotLoaded
	}
	return s.store.Options(ctx), nil
}

// History returns every scored week of an employee, oldest first.
func (s *Service) History(ctx context.Context, employeeID string) (types.EmployeeHistory, error) {
	if !s.Loaded() {
		return types.EmployeeHistory{}, ErrNotLoaded
	}
	employeeID = strings.TrimSpace(employeeID)

	entries := s.store.History(ctx, employeeID)
	h := types.EmployeeHistory{
		EmployeeID: employeeID,
		Found:      len(entries) > 0,
		Points:     make([]types.HistoryPoint, 0, len(entries)),
	}
	for i := range entries {
		h.Points = append(h.Points, types.NewHistoryPoint(&entries[i].Record))
	}
	return h, nil
}

// Nudges returns the selected-week snapshot, raw features and nudges of an
// employee. An
// empty week selects the latest week of the snapshot. A missing record is
// reported with Found=false.
func (s *Service) Nudges(ctx context.Context, employeeID, week string) (types.EmployeeNudges, error) {
	if !s.Loaded() {
		return types.EmployeeNudges{}, ErrNotLoaded
	}
	employeeID = strings.TrimSpace(employeeID)
	week = strings.TrimSpace(week)
	if week == "" {
		week = s.Summary().LatestWeek
	}

	out := types.EmployeeNudges{EmployeeID: employeeID, Week: week, Nudges: []nudge.Message{}}
	e, ok := s.store.Get(ctx, model.Key{EmployeeID: employeeID, Week: week})
	if !ok {
		return out, nil
	}
	snap := types.NewSnapshot(&e.Record)
	fv := types.NewFeatureValues(&e.Record)
	out.Found = true
	out.Snapshot = &snap
	out.Features = &fv
	out.Nudges = append(out.Nudges, e.Assessment.Nudges...)
	return out, nil
}

func (s *Service) query(ctx context.Context, f repository.Filter) ([]repository.Entry, string, error) {
	if !s.Loaded() {
		return nil, "", ErrNotLoaded
	}
	if f.Limit < 0 {
		return nil, "", repository.ErrInvalidLimit
	}
	f.Limit = 0
	res, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, "", err
	}
	return res.Entries, res.Week, nil
}

func row(e *repository.Entry) types.RiskRow {
	r := types.NewRiskRow(&e.Record)
	for _, k := range e.Assessment.Kinds() {
		r.Nudges = append(r.Nudges, string(k))
	}
	return r
}

func kpis(entries []repository.Entry) types.KPIs {
	k := types.KPIs{Employees: len(entries)}
	if len(entries) == 0 {
		return k
	}
	var afterHours, meetingHours float64
	for i := range entries {
		r := &entries[i].Record
		if r.Prediction.Label == model.RiskHigh {
			k.HighRisk++
		}
		afterHours += float64(r.AfterHoursMsgsCount)
		meetingHours += r.TotalMeetingHours
	}
	n := float64(len(entries))
	k.AvgAfterHoursMsgs = round2(afterHours / n)
	k.AvgMeetingHours = round2(meetingHours / n)
	return k
}

// round2 rounds to two decimals for display.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
