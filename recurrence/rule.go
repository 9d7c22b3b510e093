// Package recurrence implements the compact recurrence-rule grammar stored on
// events and the bounded, window-scoped expansion of rules into concrete
// occurrence start times.
package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Frequency is the base unit a rule advances by.
type Frequency int

const (
	FreqDaily Frequency = iota
	FreqWeekly
	FreqMonthly
	FreqYearly
)

// String provides a human-readable representation of the Frequency.
func (f Frequency) String() string {
	switch f {
	case FreqDaily:
		return "DAILY"
	case FreqWeekly:
		return "WEEKLY"
	case FreqMonthly:
		return "MONTHLY"
	case FreqYearly:
		return "YEARLY"
	default:
		return "UNKNOWN"
	}
}

// Rule is a parsed recurrence rule. Rules are stored on events as their
// serialized text form; this struct never hits persistence itself.
type Rule struct {
	Freq     Frequency
	Interval int // >= 1, "every N frequency-units"

	// Count and Until are the two bounded terminators; at most one is set.
	// Both absent means the rule is unbounded and expansion is limited only
	// by the query window.
	Count mo.Option[int]
	Until mo.Option[time.Time]

	// ByDay lists the weekdays selected by a BYDAY part, normalized to
	// Monday-first ascending order with duplicates removed. It is recorded
	// for every frequency but only applied when Freq is FreqWeekly.
	ByDay []time.Weekday
}

// Unbounded reports whether the rule has no terminator of its own.
func (r Rule) Unbounded() bool {
	return r.Count.IsAbsent() && r.Until.IsAbsent()
}

// weekly BYDAY ordering uses Monday as the first day of the week.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
