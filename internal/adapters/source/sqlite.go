package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/pkg/logger"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLite reads a snapshot from one table of a SQLite database.
type SQLite struct {
	path  string
	table string
	log   logger.Logger
}

// NewSQLite returns a SQLite source for the database at path.
func NewSQLite(path string, opts ...Option) *SQLite {
	s := newSettings(opts)
	return &SQLite{path: path, table: s.table, log: s.log}
}

// Load reads every row of the configured table.
func (s *SQLite) Load(ctx context.Context) ([]model.WeeklyRecord, error) {
	db, err := sql.Open("sqlite", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer func() { _ = db.Close() }()

	records, err := ReadTable(ctx, db, s.table)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "sqlite snapshot read",
		logger.String("path", s.path),
		logger.String("table", s.table),
		logger.Int("records", len(records)),
	)
	return records, nil
}

// ReadTable decodes every row of table. NULL cells fail like empty CSV cells.
func ReadTable(ctx context.Context, db *sql.DB, table string) ([]model.WeeklyRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = rows.Close() }()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	dec, err := newDecoder(header)
	if err != nil {
		return nil, err
	}

	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	values := make([]string, len(header))

	var out []model.WeeklyRecord
	for row := 1; rows.Next(); row++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrRead, row, err)
		}
		for i, c := range cells {
			values[i] = c.String
		}
		rec, err := dec.decode(row, values)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
