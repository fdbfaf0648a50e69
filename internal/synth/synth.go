// Package synth generates a synthetic weekly-activity snapshot and a linear
// model compatible with it, for local runs and demos.
package synth

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/empathy/internal/domain/model"
)

// Defaults for a generated snapshot.
const (
	DefaultEmployees = 200
	DefaultWeeks     = 8
	DefaultSeed      = 42
)

var ( //nolint:gochecknoglobals // fixed vocabulary
	roles = []string{"Engineer", "Designer", "Manager", "Analyst", "Support"}
	teams = []string{"Platform", "Growth", "Data", "Mobile", "Ops"}
	// country -> culture cluster
	countries = map[string]string{
		"DE": "Germanic",
		"NL": "Germanic",
		"US": "Anglo",
		"GB": "Anglo",
		"BR": "Latin",
		"ES": "Latin",
		"JP": "Confucian",
		"IN": "SouthAsian",
	}
)

// Option configures a Generator.
type Option func(*Generator)

// WithEmployees sets the number of employees.
func WithEmployees(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.employees = n
		}
	}
}

// WithWeeks sets the number of consecutive weeks per employee.
func WithWeeks(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.weeks = n
		}
	}
}

// WithStart sets the first week_start_date. It is moved back to a Monday.
func WithStart(t time.Time) Option {
	return func(g *Generator) {
		if !t.IsZero() {
			g.start = t
		}
	}
}

// WithSeed makes the output reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// Generator produces weekly records for a fixed population.
type Generator struct {
	employees int
	weeks     int
	start     time.Time
	seed      int64
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		employees: DefaultEmployees,
		weeks:     DefaultWeeks,
		start:     time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		seed:      DefaultSeed,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.start = monday(g.start)
	return g
}

type employee struct {
	id        string
	role      string
	team      string
	country   string
	stress    float64
	load      float64
	isolation float64
}

// Records generates employees x weeks records. The same seed yields the
// same records, ids included.
func (g *Generator) Records() []model.WeeklyRecord {
	rng := rand.New(rand.NewSource(g.seed)) //nolint:gosec // synthetic data

	codes := make([]string, 0, len(countries))
	for c := range countries {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	staff := make([]employee, g.employees)
	for i := range staff {
		id := uuid.Must(uuid.NewRandomFromReader(rng))
		staff[i] = employee{
			id:        id.String(),
			role:      roles[rng.Intn(len(roles))],
			team:      teams[rng.Intn(len(teams))],
			country:   codes[rng.Intn(len(codes))],
			stress:    rng.Float64(),
			load:      rng.Float64(),
			isolation: rng.Float64(),
		}
	}

	out := make([]model.WeeklyRecord, 0, g.employees*g.weeks)
	for w := 0; w < g.weeks; w++ {
		week := g.start.AddDate(0, 0, 7*w)
		for i := range staff {
			out = append(out, g.week(rng, &staff[i], week))
		}
	}
	withinCountryZ(out)
	return out
}

func (g *Generator) week(rng *rand.Rand, e *employee, week time.Time) model.WeeklyRecord {
	stress := clamp(e.stress+rng.NormFloat64()*0.15, 0, 1)
	load := clamp(e.load+rng.NormFloat64()*0.1, 0, 1)
	iso := clamp(e.isolation+rng.NormFloat64()*0.05, 0, 1)

	sent := 15 + int(60*load) + rng.Intn(10)
	meetings := 4 + int(18*load) + rng.Intn(3)
	return model.WeeklyRecord{
		EmployeeID:                e.id,
		WeekStartDate:             week,
		TotalEmailsSent:           sent,
		TotalEmailsReceived:       sent + int(float64(sent)*0.6) + rng.Intn(20),
		AvgEmailReplyTimeMin:      round(15 + 50*rng.Float64() + 20*stress),
		TotalSlackMsgsSent:        40 + int(160*load) + rng.Intn(30),
		AfterHoursMsgsCount:       int(45*stress*stress) + rng.Intn(6),
		NumMeetings:               meetings,
		TotalMeetingHours:         round(float64(meetings)*(0.6+0.6*rng.Float64()) + 4*load),
		BackToBackMeetingBlocks:   int(6 * load * rng.Float64()),
		UniqueContactsCount:       3 + int(30*(1-iso)) + rng.Intn(4),
		DegreeCentrality:          round(clamp(0.7*(1-iso)+0.1*rng.Float64(), 0, 1)),
		BetweennessCentrality:     round(0.15 * (1 - iso) * rng.Float64()),
		IsolationScore:            round(iso),
		ZAfterHoursWithinCountry:  0,
		ZReplyTimeWithinCountry:   0,
		ZMeetingLoadWithinCountry: 0,
		Role:                      e.role,
		Team:                      e.team,
		Country:                   e.country,
		CultureCluster:            countries[e.country],
	}
}

// withinCountryZ fills the z-score columns per (country, week).
func withinCountryZ(records []model.WeeklyRecord) {
	groups := make(map[string][]int)
	for i := range records {
		k := records[i].Country + "|" + records[i].Week()
		groups[k] = append(groups[k], i)
	}
	for _, idx := range groups {
		afterHours := zscores(idx, func(i int) float64 { return float64(records[i].AfterHoursMsgsCount) })
		reply := zscores(idx, func(i int) float64 { return records[i].AvgEmailReplyTimeMin })
		meeting := zscores(idx, func(i int) float64 { return records[i].TotalMeetingHours })
		for j, i := range idx {
			records[i].ZAfterHoursWithinCountry = afterHours[j]
			records[i].ZReplyTimeWithinCountry = reply[j]
			records[i].ZMeetingLoadWithinCountry = meeting[j]
		}
	}
}

func zscores(idx []int, value func(int) float64) []float64 {
	out := make([]float64, len(idx))
	mean, std := meanStd(len(idx), func(j int) float64 { return value(idx[j]) })
	if std == 0 {
		return out
	}
	for j, i := range idx {
		out[j] = round((value(i) - mean) / std)
	}
	return out
}

func meanStd(n int, value func(int) float64) (float64, float64) {
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for j := 0; j < n; j++ {
		sum += value(j)
	}
	mean := sum / float64(n)
	var sq float64
	for j := 0; j < n; j++ {
		d := value(j) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n))
}

func monday(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func round(v float64) float64 { return math.Round(v*1000) / 1000 }
