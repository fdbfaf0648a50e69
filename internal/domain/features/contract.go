// Package features defines the fixed column contract shared by the
// classifier and the nudge rules.
//
// The numeric and categorical lists are ordered: the classifier was trained
// on exactly this order, so every feature row handed to it follows it.
package features

import (
	"math"

	"github.com/okian/empathy/internal/domain/model"
)

// Identity columns.
const (
	ColumnEmployeeID    = "employee_id"
	ColumnWeekStartDate = "week_start_date"
)

type numericColumn struct {
	name     string
	integral bool
	get      func(*model.WeeklyRecord) float64
	set      func(*model.WeeklyRecord, float64)
}

type categoricalColumn struct {
	name string
	get  func(*model.WeeklyRecord) string
	set  func(*model.WeeklyRecord, string)
}

var numericColumns = []numericColumn{ //nolint:gochecknoglobals // fixed feature contract
	{"total_emails_sent", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.TotalEmailsSent) },
		func(r *model.WeeklyRecord, v float64) { r.TotalEmailsSent = int(v) }},
	{"total_emails_received", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.TotalEmailsReceived) },
		func(r *model.WeeklyRecord, v float64) { r.TotalEmailsReceived = int(v) }},
	{"avg_email_reply_time_min", false,
		func(r *model.WeeklyRecord) float64 { return r.AvgEmailReplyTimeMin },
		func(r *model.WeeklyRecord, v float64) { r.AvgEmailReplyTimeMin = v }},
	{"total_slack_msgs_sent", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.TotalSlackMsgsSent) },
		func(r *model.WeeklyRecord, v float64) { r.TotalSlackMsgsSent = int(v) }},
	{"after_hours_msgs_count", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.AfterHoursMsgsCount) },
		func(r *model.WeeklyRecord, v float64) { r.AfterHoursMsgsCount = int(v) }},
	{"num_meetings", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.NumMeetings) },
		func(r *model.WeeklyRecord, v float64) { r.NumMeetings = int(v) }},
	{"total_meeting_hours", false,
		func(r *model.WeeklyRecord) float64 { return r.TotalMeetingHours },
		func(r *model.WeeklyRecord, v float64) { r.TotalMeetingHours = v }},
	{"back_to_back_meeting_blocks", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.BackToBackMeetingBlocks) },
		func(r *model.WeeklyRecord, v float64) { r.BackToBackMeetingBlocks = int(v) }},
	{"unique_contacts_count", true,
		func(r *model.WeeklyRecord) float64 { return float64(r.UniqueContactsCount) },
		func(r *model.WeeklyRecord, v float64) { r.UniqueContactsCount = int(v) }},
	{"degree_centrality", false,
		func(r *model.WeeklyRecord) float64 { return r.DegreeCentrality },
		func(r *model.WeeklyRecord, v float64) { r.DegreeCentrality = v }},
	{"betweenness_centrality", false,
		func(r *model.WeeklyRecord) float64 { return r.BetweennessCentrality },
		func(r *model.WeeklyRecord, v float64) { r.BetweennessCentrality = v }},
	{"isolation_score", false,
		func(r *model.WeeklyRecord) float64 { return r.IsolationScore },
		func(r *model.WeeklyRecord, v float64) { r.IsolationScore = v }},
	{"z_after_hours_within_country", false,
		func(r *model.WeeklyRecord) float64 { return r.ZAfterHoursWithinCountry },
		func(r *model.WeeklyRecord, v float64) { r.ZAfterHoursWithinCountry = v }},
	{"z_reply_time_within_country", false,
		func(r *model.WeeklyRecord) float64 { return r.ZReplyTimeWithinCountry },
		func(r *model.WeeklyRecord, v float64) { r.ZReplyTimeWithinCountry = v }},
	{"z_meeting_load_within_country", false,
		func(r *model.WeeklyRecord) float64 { return r.ZMeetingLoadWithinCountry },
		func(r *model.WeeklyRecord, v float64) { r.ZMeetingLoadWithinCountry = v }},
}

var categoricalColumns = []categoricalColumn{ //nolint:gochecknoglobals // fixed feature contract
	{"role",
		func(r *model.WeeklyRecord) string { return r.Role },
		func(r *model.WeeklyRecord, v string) { r.Role = v }},
	{"team",
		func(r *model.WeeklyRecord) string { return r.Team },
		func(r *model.WeeklyRecord, v string) { r.Team = v }},
	{"country",
		func(r *model.WeeklyRecord) string { return r.Country },
		func(r *model.WeeklyRecord, v string) { r.Country = v }},
	{"culture_cluster",
		func(r *model.WeeklyRecord) string { return r.CultureCluster },
		func(r *model.WeeklyRecord, v string) { r.CultureCluster = v }},
}

// NumericCount and CategoricalCount are the widths of a feature row.
const (
	NumericCount     = 15
	CategoricalCount = 4
)

// Numeric returns the numeric feature names in training order.
func Numeric() []string {
	out := make([]string, len(numericColumns))
	for i, c := range numericColumns {
		out[i] = c.name
	}
	return out
}

// Categorical returns the categorical feature names in training order.
func Categorical() []string {
	out := make([]string, len(categoricalColumns))
	for i, c := range categoricalColumns {
		out[i] = c.name
	}
	return out
}

// RequiredColumns returns all 21 required column names: numeric features,
// then categorical features, then employee_id and week_start_date.
func RequiredColumns() []string {
	out := make([]string, 0, NumericCount+CategoricalCount+2)
	out = append(out, Numeric()...)
	out = append(out, Categorical()...)
	return append(out, ColumnEmployeeID, ColumnWeekStartDate)
}

// IsIntegral reports whether a numeric column holds counts.
func IsIntegral(column string) bool {
	for _, c := range numericColumns {
		if c.name == column {
			return c.integral
		}
	}
	return false
}

// IsNumeric reports whether column is one of the numeric features.
func IsNumeric(column string) bool {
	for _, c := range numericColumns {
		if c.name == column {
			return true
		}
	}
	return false
}

// FitsInt reports whether the whole number v converts to int without
// overflow.
func FitsInt(v float64) bool {
	return v >= math.MinInt && v < math.MaxInt
}

// SetNumeric assigns a numeric feature by column name.
// It returns false when column is not a numeric feature, or when it is a
// count column and v does not fit an int.
func SetNumeric(r *model.WeeklyRecord, column string, v float64) bool {
	for _, c := range numericColumns {
		if c.name == column {
			if c.integral && !FitsInt(v) {
				return false
			}
			c.set(r, v)
			return true
		}
	}
	return false
}

// SetCategorical assigns a categorical feature by column name.
// It returns false when column is not a categorical feature.
func SetCategorical(r *model.WeeklyRecord, column, v string) bool {
	for _, c := range categoricalColumns {
		if c.name == column {
			c.set(r, v)
			return true
		}
	}
	return false
}

// Row is the classifier input for one record, in contract order.
type Row struct {
	Numeric     []float64
	Categorical []string
}

// RowOf extracts the feature row of r.
func RowOf(r *model.WeeklyRecord) Row {
	row := Row{
		Numeric:     make([]float64, len(numericColumns)),
		Categorical: make([]string, len(categoricalColumns)),
	}
	for i, c := range numericColumns {
		row.Numeric[i] = c.get(r)
	}
	for i, c := range categoricalColumns {
		row.Categorical[i] = c.get(r)
	}
	return row
}

// Rows extracts feature rows for every record, preserving order.
func Rows(records []model.WeeklyRecord) []Row {
	rows := make([]Row, len(records))
	for i := range records {
		rows[i] = RowOf(&records[i])
	}
	return rows
}
