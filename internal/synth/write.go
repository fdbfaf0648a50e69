package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
)

// WriteCSV writes records with the full required header.
func WriteCSV(w io.Writer, records []model.WeeklyRecord) error {
	cw := csv.NewWriter(w)
	header := features.RequiredColumns()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	numeric := features.Numeric()
	line := make([]string, len(header))
	for i := range records {
		r := &records[i]
		row := features.RowOf(r)
		for j, v := range row.Numeric {
			if features.IsIntegral(numeric[j]) {
				line[j] = strconv.FormatInt(int64(v), 10)
			} else {
				line[j] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		off := features.NumericCount
		copy(line[off:], row.Categorical)
		off += features.CategoricalCount
		line[off] = r.EmployeeID
		line[off+1] = r.Week()
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
