// Package dedupe enforces the (employee_id, week_start_date) uniqueness
// invariant on an ingested snapshot.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/empathy/internal/domain/model"
)

// ErrDuplicateRecord is the sentinel kind of every uniqueness failure.
var ErrDuplicateRecord = errors.New("duplicate record")

// DuplicateError lists every key that occurs more than once.
type DuplicateError struct {
	Keys []model.Key
}

func (e *DuplicateError) Error() string {
	parts := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		parts[i] = k.String()
	}
	return fmt.Sprintf("duplicate record: (employee_id, week_start_date) repeated for [%s]", strings.Join(parts, ", "))
}

// Is lets errors.Is(err, ErrDuplicateRecord) match.
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateRecord }

// Check verifies that no two records share a key. Each repeated key is
// reported once, in order of its first repetition.
func Check(ctx context.Context, records []model.WeeklyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seen := make(map[model.Key]int, len(records))
	var dups []model.Key
	for i := range records {
		k := records[i].Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	if len(dups) > 0 {
		return &DuplicateError{Keys: dups}
	}
	return nil
}
