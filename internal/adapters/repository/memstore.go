package repository

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/types"
	"github.com/okian/empathy/pkg/logger"
	"github.com/okian/empathy/pkg/metrics"
)

// snapshot is the immutable, pre-indexed state behind every read.
type snapshot struct {
	entries    []Entry
	byKey      map[model.Key]int
	byEmployee map[string][]int // indexes ordered by week asc
	byWeek     map[string][]int // indexes ordered by prob_high desc, employee_id asc
	options    types.FilterOptions
}

// MemoryStore keeps the snapshot in memory behind an atomic pointer, so
// readers never block and a publish is seen all at once.
type MemoryStore struct {
	current atomic.Pointer[snapshot]
	log     logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{log: logger.Get().Named("repository")}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(build(nil, nil))
	return s
}

// Publish indexes entries and swaps them in.
func (s *MemoryStore) Publish(ctx context.Context, entries []Entry) error {
	own := make([]Entry, len(entries))
	copy(own, entries)

	byKey := make(map[model.Key]int, len(own))
	for i := range own {
		k := own[i].Record.Key()
		if _, dup := byKey[k]; dup {
			metrics.RecordErrorByComponent("repository", "duplicate_key")
			return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
		}
		byKey[k] = i
	}

	snap := build(own, byKey)
	s.current.Store(snap)
	metrics.UpdateRecordsLoaded(len(own))
	s.log.Info(ctx, "snapshot published",
		logger.Int("entries", len(own)),
		logger.Int("weeks", len(snap.options.Weeks)),
	)
	return nil
}

func build(entries []Entry, byKey map[model.Key]int) *snapshot {
	if byKey == nil {
		byKey = map[model.Key]int{}
	}
	snap := &snapshot{
		entries:    entries,
		byKey:      byKey,
		byEmployee: make(map[string][]int),
		byWeek:     make(map[string][]int),
	}
	countries := map[string]struct{}{}
	teams := map[string]struct{}{}
	for i := range entries {
		r := &entries[i].Record
		snap.byEmployee[r.EmployeeID] = append(snap.byEmployee[r.EmployeeID], i)
		snap.byWeek[r.Week()] = append(snap.byWeek[r.Week()], i)
		countries[r.Country] = struct{}{}
		teams[r.Team] = struct{}{}
	}
	for _, idx := range snap.byEmployee {
		sort.Slice(idx, func(a, b int) bool {
			return entries[idx[a]].Record.WeekStartDate.Before(entries[idx[b]].Record.WeekStartDate)
		})
	}
	for _, idx := range snap.byWeek {
		sortByRisk(entries, idx)
	}
	snap.options = types.FilterOptions{
		Weeks:     sortedKeys(snap.byWeek),
		Countries: sortedKeys(countries),
		Teams:     sortedKeys(teams),
	}
	return snap
}

// sortByRisk orders by prob_high (descending) and employee_id (ascending).
func sortByRisk(entries []Entry, idx []int) {
	sort.Slice(idx, func(a, b int) bool {
		ra, rb := &entries[idx[a]].Record, &entries[idx[b]].Record
		pa, pb := ra.Prediction.Probabilities.High(), rb.Prediction.Probabilities.High()
		if pa != pb {
			return pa > pb
		}
		return ra.EmployeeID < rb.EmployeeID
	})
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Query implements Store.Query.
func (s *MemoryStore) Query(_ context.Context, f Filter) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if f.Limit < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return Result{}, ErrInvalidLimit
	}

	snap := s.current.Load()
	week := f.Week
	if week == "" {
		if n := len(snap.options.Weeks); n > 0 {
			week = snap.options.Weeks[n-1]
		}
	}

	countries := set(f.Countries)
	teams := set(f.Teams)
	labels := make(map[model.RiskLabel]struct{}, len(f.Labels))
	for _, l := range f.Labels {
		labels[l] = struct{}{}
	}

	out := []Entry{}
	for _, i := range snap.byWeek[week] {
		r := &snap.entries[i].Record
		if !match(countries, r.Country) || !match(teams, r.Team) {
			continue
		}
		if len(labels) > 0 {
			if _, ok := labels[r.Prediction.Label]; !ok {
				continue
			}
		}
		out = append(out, snap.entries[i])
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return Result{Week: week, Entries: out}, nil
}

func set(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

func match(allowed map[string]struct{}, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[v]
	return ok
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, key model.Key) (Entry, bool) {
	snap := s.current.Load()
	i, ok := snap.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return snap.entries[i], true
}

// History implements Store.History.
func (s *MemoryStore) History(_ context.Context, employeeID string) []Entry {
	snap := s.current.Load()
	idx := snap.byEmployee[employeeID]
	out := make([]Entry, len(idx))
	for j, i := range idx {
		out[j] = snap.entries[i]
	}
	return out
}

// Options implements Store.Options.
func (s *MemoryStore) Options(_ context.Context) types.FilterOptions {
	o := s.current.Load().options
	return types.FilterOptions{
		Weeks:     append([]string{}, o.Weeks...),
		Countries: append([]string{}, o.Countries...),
		Teams:     append([]string{}, o.Teams...),
	}
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	return len(s.current.Load().entries)
}
