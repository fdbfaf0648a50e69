// Package types contains common types used across the application
package types

import (
	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
)

// RiskRow is one line of the risk table.
type RiskRow struct {
	EmployeeID              string   `json:"employee_id"`
	Role                    string   `json:"role"`
	Team                    string   `json:"team"`
	Country                 string   `json:"country"`
	WeekStartDate           string   `json:"week_start_date"`
	PredictedLabel          int      `json:"predicted_label"`
	ProbHigh                float64  `json:"prob_high"`
	AfterHoursMsgsCount     int      `json:"after_hours_msgs_count"`
	TotalMeetingHours       float64  `json:"total_meeting_hours"`
	BackToBackMeetingBlocks int      `json:"back_to_back_meeting_blocks"`
	IsolationScore          float64  `json:"isolation_score"`
	Nudges                  []string `json:"nudges,omitempty"`
}

// KPIs summarizes a filtered view.
type KPIs struct {
	Employees         int     `json:"employees"`
	HighRisk          int     `json:"high_risk"`
	AvgAfterHoursMsgs float64 `json:"avg_after_hours_msgs"`
	AvgMeetingHours   float64 `json:"avg_meeting_hours"`
}

// RiskTable is the filtered, ranked view for one week.
type RiskTable struct {
	Week string    `json:"week"`
	KPIs KPIs      `json:"kpis"`
	Rows []RiskRow `json:"rows"`
}

// Snapshot is the selected-week detail for one employee.
type Snapshot struct {
	EmployeeID              string  `json:"employee_id"`
	Role                    string  `json:"role"`
	Team                    string  `json:"team"`
	Country                 string  `json:"country"`
	WeekStartDate           string  `json:"week_start_date"`
	PredictedLabel          int     `json:"predicted_label"`
	ProbLow                 float64 `json:"prob_low"`
	ProbMedium              float64 `json:"prob_medium"`
	ProbHigh                float64 `json:"prob_high"`
	AfterHoursMsgsCount     int     `json:"after_hours_msgs_count"`
	TotalMeetingHours       float64 `json:"total_meeting_hours"`
	BackToBackMeetingBlocks int     `json:"back_to_back_meeting_blocks"`
	IsolationScore          float64 `json:"isolation_score"`
}

// FeatureValues is the raw classifier input of one record, keyed by column
// name.
type FeatureValues struct {
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
}

// HistoryPoint is one week of an employee's risk trend.
type HistoryPoint struct {
	WeekStartDate  string  `json:"week_start_date"`
	PredictedLabel int     `json:"predicted_label"`
	ProbLow        float64 `json:"prob_low"`
	ProbMedium     float64 `json:"prob_medium"`
	ProbHigh       float64 `json:"prob_high"`
}

// FilterOptions lists the distinct values available to filter on.
type FilterOptions struct {
	Weeks     []string `json:"weeks"`
	Countries []string `json:"countries"`
	Teams     []string `json:"teams"`
}

// EmployeeNudges is the selected-week panel: the snapshot, its raw feature
// values and its nudges.
// Found is false when the employee has no record for Week.
type EmployeeNudges struct {
	EmployeeID string          `json:"employee_id"`
	Week       string          `json:"week"`
	Found      bool            `json:"found"`
	Snapshot   *Snapshot       `json:"snapshot,omitempty"`
	Features   *FeatureValues  `json:"features,omitempty"`
	Nudges     []nudge.Message `json:"nudges"`
}

// EmployeeHistory is an employee's trend, oldest week first.
type EmployeeHistory struct {
	EmployeeID string         `json:"employee_id"`
	Found      bool           `json:"found"`
	Points     []HistoryPoint `json:"points"`
}

// LoadSummary describes the snapshot produced by one load. Interventions
// counts the records where a rule other than the fallback fired.
type LoadSummary struct {
	Records       int            `json:"records"`
	Weeks         int            `json:"weeks"`
	LatestWeek    string         `json:"latest_week"`
	Labels        map[string]int `json:"labels"`
	Nudges        map[string]int `json:"nudges"`
	Interventions int            `json:"interventions"`
	DurationMs    int64          `json:"duration_ms"`
}

// NewRiskRow projects r onto the risk table columns.
func NewRiskRow(r *model.WeeklyRecord) RiskRow {
	return RiskRow{
		EmployeeID:              r.EmployeeID,
		Role:                    r.Role,
		Team:                    r.Team,
		Country:                 r.Country,
		WeekStartDate:           r.Week(),
		PredictedLabel:          int(r.Prediction.Label),
		ProbHigh:                r.Prediction.Probabilities.High(),
		AfterHoursMsgsCount:     r.AfterHoursMsgsCount,
		TotalMeetingHours:       r.TotalMeetingHours,
		BackToBackMeetingBlocks: r.BackToBackMeetingBlocks,
		IsolationScore:          r.IsolationScore,
	}
}

// NewSnapshot projects r onto the selected-week detail.
func NewSnapshot(r *model.WeeklyRecord) Snapshot {
	p := r.Prediction.Probabilities
	return Snapshot{
		EmployeeID:              r.EmployeeID,
		Role:                    r.Role,
		Team:                    r.Team,
		Country:                 r.Country,
		WeekStartDate:           r.Week(),
		PredictedLabel:          int(r.Prediction.Label),
		ProbLow:                 p.Low(),
		ProbMedium:              p.Medium(),
		ProbHigh:                p.High(),
		AfterHoursMsgsCount:     r.AfterHoursMsgsCount,
		TotalMeetingHours:       r.TotalMeetingHours,
		BackToBackMeetingBlocks: r.BackToBackMeetingBlocks,
		IsolationScore:          r.IsolationScore,
	}
}

// NewFeatureValues extracts the feature row of r by column name.
func NewFeatureValues(r *model.WeeklyRecord) FeatureValues {
	row := features.RowOf(r)
	fv := FeatureValues{
		Numeric:     make(map[string]float64, len(row.Numeric)),
		Categorical: make(map[string]string, len(row.Categorical)),
	}
	for i, name := range features.Numeric() {
		fv.Numeric[name] = row.Numeric[i]
	}
	for i, name := range features.Categorical() {
		fv.Categorical[name] = row.Categorical[i]
	}
	return fv
}

// NewHistoryPoint projects r onto a trend point.
func NewHistoryPoint(r *model.WeeklyRecord) HistoryPoint {
	p := r.Prediction.Probabilities
	return HistoryPoint{
		WeekStartDate:  r.Week(),
		PredictedLabel: int(r.Prediction.Label),
		ProbLow:        p.Low(),
		ProbMedium:     p.Medium(),
		ProbHigh:       p.High(),
	}
}
