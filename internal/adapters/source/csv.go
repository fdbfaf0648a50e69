package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/pkg/logger"
)

// CSV reads a snapshot from a comma-separated file with a header row.
type CSV struct {
	path string
	log  logger.Logger
}

// NewCSV returns a CSV source for path.
func NewCSV(path string, opts ...Option) *CSV {
	s := newSettings(opts)
	return &CSV{path: path, log: s.log}
}

// Load reads the whole file.
func (c *CSV) Load(ctx context.Context) ([]model.WeeklyRecord, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, err
	}
	c.log.Info(ctx, "csv snapshot read", logger.String("path", c.path), logger.Int("records", len(records)))
	return records, nil
}

// ReadCSV decodes a snapshot from r.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.WeeklyRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	header[0] = trimBOM(header[0])
	dec, err := newDecoder(header)
	if err != nil {
		return nil, err
	}

	var out []model.WeeklyRecord
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		rec, err := dec.decode(row, values)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
