// Package repository holds the enriched snapshot and answers dashboard queries.
package repository

import (
	"context"

	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	"github.com/okian/empathy/internal/domain/types"
)

// Entry is one scored record with its nudges.
type Entry struct {
	Record     model.WeeklyRecord
	Assessment nudge.Assessment
}

// Filter selects rows of the risk table. Empty slices match everything.
type Filter struct {
	// Week is a week_start_date; empty selects the latest week in the snapshot.
	Week      string
	Countries []string
	Teams     []string
	Labels    []model.RiskLabel
	// Limit caps the number of rows; 0 means no cap.
	Limit int
}

// Result is a filtered view of one week.
type Result struct {
	Week    string
	Entries []Entry
}

// Store provides read access to one published snapshot.
type Store interface {
	// Publish replaces the snapshot with entries. Keys must be unique.
	Publish(ctx context.Context, entries []Entry) error

	// Query returns the entries of one week matching f, ordered by prob_high
	// desc then employee_id asc. No match is an empty result, not an error.
	Query(ctx context.Context, f Filter) (Result, error)

	// Get returns the entry for key, if any.
	Get(ctx context.Context, key model.Key) (Entry, bool)

	// History returns an employee's entries ordered by week ascending.
	History(ctx context.Context, employeeID string) []Entry

	// Options lists the distinct weeks, countries and teams, sorted.
	Options(ctx context.Context) types.FilterOptions

	// Count returns the number of entries in the snapshot.
	Count(ctx context.Context) int
}
