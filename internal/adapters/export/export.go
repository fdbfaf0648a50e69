// Package export writes risk-table rows as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/types"
)

// Columns is the CSV header, in output order.
var Columns = []string{ //nolint:gochecknoglobals // fixed export layout
	"employee_id",
	"role",
	"team",
	"country",
	"week_start_date",
	"predicted_label",
	"prob_high",
	"after_hours_msgs_count",
	"total_meeting_hours",
	"back_to_back_meeting_blocks",
	"isolation_score",
}

// HighRiskFileName is the download name for a week's high-risk export.
func HighRiskFileName(week string) string {
	return fmt.Sprintf("high_risk_%s.csv", week)
}

// HighRisk keeps the rows predicted high risk, preserving order.
func HighRisk(rows []types.RiskRow) []types.RiskRow {
	out := make([]types.RiskRow, 0, len(rows))
	for _, r := range rows {
		if r.PredictedLabel == int(model.RiskHigh) {
			out = append(out, r)
		}
	}
	return out
}

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []types.RiskRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(Columns))
	for _, r := range rows {
		line[0] = r.EmployeeID
		line[1] = r.Role
		line[2] = r.Team
		line[3] = r.Country
		line[4] = r.WeekStartDate
		line[5] = strconv.Itoa(r.PredictedLabel)
		line[6] = formatFloat(r.ProbHigh)
		line[7] = strconv.Itoa(r.AfterHoursMsgsCount)
		line[8] = formatFloat(r.TotalMeetingHours)
		line[9] = strconv.Itoa(r.BackToBackMeetingBlocks)
		line[10] = formatFloat(r.IsolationScore)
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row %s: %w", r.EmployeeID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
