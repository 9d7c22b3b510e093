package recurrence

import (
	"time"
)

// Window is an inclusive query range.
type Window struct {
	Start time.Time
	End   time.Time
}

// ExpandOptions carries the anchor-event properties that change which
// candidates fall inside a window.
type ExpandOptions struct {
	// Duration is the anchor's end minus start; zero when the anchor has no
	// end time. A positive duration pulls in occurrences that start before
	// the window but span into it.
	Duration time.Duration

	// AllDay switches every window comparison to date granularity so a
	// midnight-straddling occurrence is not double counted or dropped.
	AllDay bool
}

// Expand produces the ordered occurrence start times of rule, anchored at
// anchor, that fall inside (or, with a positive duration, overlap) win.
//
// Generation is always finite: besides COUNT and UNTIL, the candidate stream
// stops once a start exceeds the window end plus one duration, so an
// unbounded rule costs O(occurrences near the window), never O(all future
// occurrences). Expand is a pure function; identical arguments yield an
// identical sequence.
func Expand(rule Rule, anchor time.Time, win Window, opts ExpandOptions) []time.Time {
	cmp := timeComparer{allDay: opts.AllDay}

	if until, ok := rule.Until.Get(); ok && cmp.before(until, win.Start) {
		return nil
	}
	if cmp.after(anchor, win.End) {
		return nil
	}

	gen := candidateGenerator(rule, anchor)

	var (
		out          []time.Time
		produced     int
		count, byCnt = rule.Count.Get()
		until, byTil = rule.Until.Get()
		bound        = win.End.Add(opts.Duration)
	)

	for step := 0; ; step++ {
		for _, cand := range gen(step) {
			// Pre-anchor candidates only arise from BYDAY fan-out in the
			// anchor's own week; they are not occurrences and do not count.
			if cand.Before(anchor) {
				continue
			}
			if byTil && cand.After(until) {
				return out
			}
			if cmp.after(cand, bound) {
				return out
			}
			produced++
			if cmp.overlaps(cand, cand.Add(opts.Duration), win) {
				out = append(out, cand)
			}
			if byCnt && produced >= count {
				return out
			}
		}
	}
}

// candidateGenerator returns the candidates for the n-th interval step,
// ascending within the step. All steps are computed from the anchor rather
// than from the previous candidate so month-length clamping never
// accumulates drift (Jan 31 -> Feb 28 -> Mar 31, not Mar 28).
func candidateGenerator(rule Rule, anchor time.Time) func(step int) []time.Time {
	if rule.Freq == FreqWeekly && len(rule.ByDay) > 0 {
		base := startOfWeek(anchor)
		return func(step int) []time.Time {
			week := base.AddDate(0, 0, step*rule.Interval*7)
			cands := make([]time.Time, 0, len(rule.ByDay))
			for _, day := range rule.ByDay {
				cands = append(cands, week.AddDate(0, 0, mondayIndex(day)))
			}
			return cands
		}
	}

	switch rule.Freq {
	case FreqWeekly:
		return func(step int) []time.Time {
			return []time.Time{anchor.AddDate(0, 0, step*rule.Interval*7)}
		}
	case FreqMonthly:
		return func(step int) []time.Time {
			return []time.Time{addMonthsClamped(anchor, step*rule.Interval)}
		}
	case FreqYearly:
		return func(step int) []time.Time {
			return []time.Time{addMonthsClamped(anchor, step*rule.Interval*12)}
		}
	default: // FreqDaily
		return func(step int) []time.Time {
			return []time.Time{anchor.AddDate(0, 0, step*rule.Interval)}
		}
	}
}

// addMonthsClamped advances t by the given number of months, landing on the
// same day-of-month when possible and on the last day of shorter months
// otherwise. time.Time.AddDate is unsuitable here: it normalizes Jan 31 + 1
// month to Mar 2/3 instead of clamping to Feb.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	m := int(month) - 1 + months
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	month = time.Month(m + 1)

	if last := daysInMonth(year, month); day > last {
		day = last
	}

	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// startOfWeek returns the instant of t's Monday, keeping t's time of day.
func startOfWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, -mondayIndex(t.Weekday()))
}

// timeComparer compares instants either exactly or, for all-day events, at
// date granularity in the instant's own location.
type timeComparer struct {
	allDay bool
}

func (c timeComparer) norm(t time.Time) time.Time {
	if !c.allDay {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (c timeComparer) before(a, b time.Time) bool {
	return c.norm(a).Before(c.norm(b))
}

func (c timeComparer) after(a, b time.Time) bool {
	return c.norm(a).After(c.norm(b))
}

// overlaps reports whether the occurrence interval [start, end] intersects
// the window, both ends inclusive.
func (c timeComparer) overlaps(start, end time.Time, win Window) bool {
	return !c.after(start, win.End) && !c.before(end, win.Start)
}
