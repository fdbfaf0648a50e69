// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date layout used for week_start_date.
const DateLayout = "2006-01-02"

// RiskLabel is the classifier's burnout-risk class.
type RiskLabel int

// Risk classes in the fixed order the classifier was trained on.
const (
	RiskLow RiskLabel = iota
	RiskMedium
	RiskHigh
)

// ClassCount is the width of the probability vector.
const ClassCount = 3

// Valid reports whether l is one of the three known classes.
func (l RiskLabel) Valid() bool { return l >= RiskLow && l <= RiskHigh }

func (l RiskLabel) String() string {
	switch l {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return fmt.Sprintf("RiskLabel(%d)", int(l))
	}
}

// Probabilities is the calibrated class-probability triple (low, medium, high).
type Probabilities [ClassCount]float64

// Low returns p(low).
func (p Probabilities) Low() float64 { return p[RiskLow] }

// Medium returns p(medium).
func (p Probabilities) Medium() float64 { return p[RiskMedium] }

// High returns p(high).
func (p Probabilities) High() float64 { return p[RiskHigh] }

// Sum returns the total probability mass.
func (p Probabilities) Sum() float64 { return p[0] + p[1] + p[2] }

// Argmax returns the most likely class. Ties resolve to the lower class.
func (p Probabilities) Argmax() RiskLabel {
	best := RiskLow
	for l := RiskMedium; l <= RiskHigh; l++ {
		if p[l] > p[best] {
			best = l
		}
	}
	return best
}

// Prediction holds the derived fields written by the inference adapter.
type Prediction struct {
	Label         RiskLabel
	Probabilities Probabilities
}

// Key identifies one employee-week.
type Key struct {
	EmployeeID string
	Week       string // week_start_date in DateLayout
}

func (k Key) String() string { return k.EmployeeID + "@" + k.Week }

// WeeklyRecord is one employee's behavioral snapshot for one week.
// Source fields are set once at ingestion; Prediction is the only part
// written afterwards.
type WeeklyRecord struct {
	EmployeeID    string
	WeekStartDate time.Time

	// Email
	TotalEmailsSent      int
	TotalEmailsReceived  int
	AvgEmailReplyTimeMin float64
	// Messaging
	TotalSlackMsgsSent  int
	AfterHoursMsgsCount int
	// Meetings
	NumMeetings             int
	TotalMeetingHours       float64
	BackToBackMeetingBlocks int
	// Network
	UniqueContactsCount   int
	DegreeCentrality      float64
	BetweennessCentrality float64
	IsolationScore        float64
	// Country-relative z-scores
	ZAfterHoursWithinCountry  float64
	ZReplyTimeWithinCountry   float64
	ZMeetingLoadWithinCountry float64

	Role           string
	Team           string
	Country        string
	CultureCluster string

	Prediction Prediction
}

// Week returns week_start_date formatted with DateLayout.
func (r *WeeklyRecord) Week() string { return r.WeekStartDate.Format(DateLayout) }

// Key returns the (employee_id, week_start_date) identity of the record.
func (r *WeeklyRecord) Key() Key { return Key{EmployeeID: r.EmployeeID, Week: r.Week()} }

// ParseWeek parses a week_start_date value.
func ParseWeek(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week_start_date %q: %w", s, err)
	}
	return t, nil
}
