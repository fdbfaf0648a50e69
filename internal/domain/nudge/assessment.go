package nudge

import "github.com/okian/empathy/internal/domain/model"

// Assessment is the nudge outcome for one record.
type Assessment struct {
	Key    model.Key
	Label  model.RiskLabel
	Nudges []Message
}

// Assess derives the nudges for r and tags them with its identity.
func (e *Engine) Assess(r *model.WeeklyRecord) Assessment {
	return Assessment{Key: r.Key(), Label: r.Prediction.Label, Nudges: e.Derive(r)}
}

// Kinds returns the message kinds of the assessment in order.
func (a Assessment) Kinds() []Kind {
	out := make([]Kind, len(a.Nudges))
	for i, m := range a.Nudges {
		out[i] = m.Kind
	}
	return out
}

// NeedsIntervention reports whether any rule other than the fallback fired.
func (a Assessment) NeedsIntervention() bool {
	return len(a.Nudges) > 0 && a.Nudges[0].Kind != KindNone
}
