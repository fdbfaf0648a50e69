// Package source reads weekly-activity snapshots into domain records.
//
// Every reader checks the header against the feature contract before it
// decodes a single row, so a snapshot with missing columns fails with a
// *features.SchemaError naming all of them.
package source

import (
	"context"
	"fmt"

	"github.com/okian/empathy/internal/domain/model"
)

// Supported formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// DefaultTable is the SQLite table read when none is configured.
const DefaultTable = "weekly_activity"

// Source produces the raw records of one snapshot.
type Source interface {
	Load(ctx context.Context) ([]model.WeeklyRecord, error)
}

// New returns the Source for format reading from path.
func New(format, path string, opts ...Option) (Source, error) {
	switch format {
	case FormatCSV:
		return NewCSV(path, opts...), nil
	case FormatSQLite:
		return NewSQLite(path, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
