// Package nudge derives just-in-time adaptive interventions from one scored
// weekly record.
//
// Rules are evaluated in a fixed order and are not mutually exclusive: every
// matching rule contributes its message. The fallback is emitted only when no
// rule matched, so the result is never empty.
package nudge

import (
	"github.com/okian/empathy/internal/domain/model"
)

// Rule thresholds.
const (
	BoundaryAfterHoursMsgs   = 20
	BoundaryProbHigh         = 0.35
	MeetingBackToBackBlocks  = 3
	MeetingTotalHours        = 20.0
	ConnectionIsolationScore = 0.75
	ConnectionProbHigh       = 0.30
)

// Kind identifies which rule produced a message.
type Kind string

// Message kinds in evaluation order.
const (
	KindBoundary        Kind = "boundary"
	KindMeetingRecovery Kind = "meeting_recovery"
	KindConnection      Kind = "connection"
	KindNone            Kind = "none"
)

// Kinds returns every kind in evaluation order, fallback last.
func Kinds() []Kind {
	return []Kind{KindBoundary, KindMeetingRecovery, KindConnection, KindNone}
}

// Message is one human-readable intervention.
type Message struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

var (
	boundaryMessage = Message{ //nolint:gochecknoglobals // fixed message set
		Kind:  KindBoundary,
		Title: "Boundary Nudge",
		Text:  "Frequent after-hours activity detected. Protect one evening this week by scheduling non-urgent work into your normal hours.",
	}
	meetingRecoveryMessage = Message{ //nolint:gochecknoglobals // fixed message set
		Kind:  KindMeetingRecovery,
		Title: "Meeting Recovery Nudge",
		Text:  "Calendar load is high. Convert one 60-min meeting into 45 mins to create recovery time between meetings.",
	}
	connectionMessage = Message{ //nolint:gochecknoglobals // fixed message set
		Kind:  KindConnection,
		Title: "Connection Nudge",
		Text:  "Collaboration appears narrow. Consider pairing with a teammate or joining a cross-functional sync to stay connected.",
	}
	fallbackMessage = Message{ //nolint:gochecknoglobals // fixed message set
		Kind:  KindNone,
		Title: "No strong intervention needed",
		Text:  "Maintain breaks, healthy boundaries, and steady collaboration routines.",
	}
)

// Rule is a single deterministic trigger.
type Rule interface {
	Kind() Kind
	Match(r *model.WeeklyRecord) bool
	Message() Message
}

type rule struct {
	msg   Message
	match func(r *model.WeeklyRecord) bool
}

func (r rule) Kind() Kind                         { return r.msg.Kind }
func (r rule) Match(rec *model.WeeklyRecord) bool { return r.match(rec) }
func (r rule) Message() Message                   { return r.msg }

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithConnectionRequiresRisk selects the Connection rule variant. When true
// (the default) the rule needs both high isolation and prob_high above its
// threshold; when false isolation alone triggers it.
func WithConnectionRequiresRisk(required bool) Option {
	return func(e *Engine) {
		e.connectionRequiresRisk = required
	}
}

// Engine evaluates the rule set. It holds no per-record state and is safe for
// concurrent use.
type Engine struct {
	connectionRequiresRisk bool
	rules                  []Rule
}

// New creates an Engine with the fixed rule order.
func New(opts ...Option) *Engine {
	e := &Engine{connectionRequiresRisk: true}
	for _, opt := range opts {
		opt(e)
	}
	e.rules = []Rule{
		rule{msg: boundaryMessage, match: boundary},
		rule{msg: meetingRecoveryMessage, match: meetingRecovery},
		rule{msg: connectionMessage, match: e.connection},
	}
	return e
}

// Rules returns the ordered rule set, fallback excluded.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// ConnectionRequiresRisk reports which Connection variant is active.
func (e *Engine) ConnectionRequiresRisk() bool { return e.connectionRequiresRisk }

// Derive returns the ordered interventions for r. It never returns an empty
// slice.
func (e *Engine) Derive(r *model.WeeklyRecord) []Message {
	var out []Message
	for _, rl := range e.rules {
		if rl.Match(r) {
			out = append(out, rl.Message())
		}
	}
	if len(out) == 0 {
		out = append(out, fallbackMessage)
	}
	return out
}

func boundary(r *model.WeeklyRecord) bool {
	return r.AfterHoursMsgsCount > BoundaryAfterHoursMsgs &&
		r.Prediction.Probabilities.High() > BoundaryProbHigh
}

func meetingRecovery(r *model.WeeklyRecord) bool {
	return r.BackToBackMeetingBlocks >= MeetingBackToBackBlocks ||
		r.TotalMeetingHours > MeetingTotalHours
}

func (e *Engine) connection(r *model.WeeklyRecord) bool {
	if r.IsolationScore <= ConnectionIsolationScore {
		return false
	}
	return !e.connectionRequiresRisk || r.Prediction.Probabilities.High() > ConnectionProbHigh
}
