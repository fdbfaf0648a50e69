package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
)

var errNotWhole = errors.New("count column must hold a whole number")

var errIntRange = errors.New("count column value out of integer range")

var errEmpty = errors.New("empty value")

// weekLayouts are the accepted week_start_date spellings; time parts are dropped.
var weekLayouts = []string{model.DateLayout, "2006-01-02 15:04:05", time.RFC3339} //nolint:gochecknoglobals // fixed layouts

// decoder maps a validated header onto record fields.
type decoder struct {
	index map[string]int
}

// newDecoder validates header and remembers where each required column sits.
// Extra columns are ignored.
func newDecoder(header []string) (*decoder, error) {
	if err := features.Validate(header); err != nil {
		return nil, err
	}
	d := &decoder{index: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := d.index[name]; !dup {
			d.index[name] = i
		}
	}
	return d, nil
}

// decode builds one record from a row of raw values. row is 1-based.
func (d *decoder) decode(row int, values []string) (model.WeeklyRecord, error) {
	var r model.WeeklyRecord
	fail := func(col, val string, err error) (model.WeeklyRecord, error) {
		return model.WeeklyRecord{}, &ParseError{Row: row, Column: col, Value: val, Err: err}
	}
	value := func(col string) string {
		i := d.index[col]
		if i >= len(values) {
			return ""
		}
		return strings.TrimSpace(values[i])
	}

	r.EmployeeID = value(features.ColumnEmployeeID)
	if r.EmployeeID == "" {
		return fail(features.ColumnEmployeeID, "", errEmpty)
	}

	week := value(features.ColumnWeekStartDate)
	t, err := parseWeek(week)
	if err != nil {
		return fail(features.ColumnWeekStartDate, week, err)
	}
	r.WeekStartDate = t

	for _, col := range features.Numeric() {
		raw := value(col)
		v, err := parseNumber(raw, features.IsIntegral(col))
		if err != nil {
			return fail(col, raw, err)
		}
		features.SetNumeric(&r, col, v)
	}
	for _, col := range features.Categorical() {
		features.SetCategorical(&r, col, value(col))
	}
	return r, nil
}

func parseNumber(raw string, integral bool) (float64, error) {
	if raw == "" {
		return 0, errEmpty
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	if integral && v != math.Trunc(v) {
		return 0, errNotWhole
	}
	if integral && !features.FitsInt(v) {
		return 0, errIntRange
	}
	return v, nil
}

func parseWeek(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range weekLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return model.ParseWeek(raw)
}
