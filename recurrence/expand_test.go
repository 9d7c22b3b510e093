package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) Rule {
	t.Helper()
	rule, err := Parse(text)
	require.NoError(t, err)
	return rule
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpand_WeeklyCount(t *testing.T) {
	// Monday 2024-01-01 09:00, three weekly occurrences.
	rule := mustParse(t, "FREQ=WEEKLY;INTERVAL=1;COUNT=3")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := Expand(rule, anchor, win, ExpandOptions{})

	want := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, want, got)
}

func TestExpand_MonthlyClampsToShortMonth(t *testing.T) {
	rule := mustParse(t, "FREQ=MONTHLY;INTERVAL=1")
	anchor := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)

	// 2024 is a leap year: the February occurrence lands on the 29th.
	feb := Window{Start: day(2024, 2, 1), End: day(2024, 2, 29)}
	got := Expand(rule, anchor, feb, ExpandOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), got[0])

	// Non-leap February clamps to the 28th, not March 3.
	feb25 := Window{Start: day(2025, 2, 1), End: day(2025, 2, 28)}
	got = Expand(rule, anchor, feb25, ExpandOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), got[0])

	// Clamping never drifts: March is back on the 31st.
	mar := Window{Start: day(2024, 3, 1), End: day(2024, 3, 31)}
	got = Expand(rule, anchor, mar, ExpandOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC), got[0])
}

func TestExpand_WeeklyByDayFanOut(t *testing.T) {
	rule := mustParse(t, "FREQ=WEEKLY;BYDAY=MO,WE,FR")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) // a Monday
	win := Window{Start: day(2024, 1, 1), End: time.Date(2024, 1, 7, 23, 59, 59, 0, time.UTC)}

	got := Expand(rule, anchor, win, ExpandOptions{})

	want := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, want, got)
}

func TestExpand_WeeklyByDaySkipsPreAnchorDays(t *testing.T) {
	// Anchored on a Wednesday: the Monday of the anchor week is not an
	// occurrence and must not count toward COUNT.
	rule := mustParse(t, "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=3")
	anchor := time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC) // Wednesday
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := Expand(rule, anchor, win, ExpandOptions{})

	want := []time.Time{
		time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC),  // Wed (anchor)
		time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC),  // Mon
		time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC), // Wed
	}
	assert.Equal(t, want, got)
}

func TestExpand_UntilBeforeWindowShortCircuits(t *testing.T) {
	rule := mustParse(t, "FREQ=DAILY;UNTIL=2023-12-01T00:00:00Z")
	anchor := time.Date(2023, 11, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	assert.Empty(t, Expand(rule, anchor, win, ExpandOptions{}))
}

func TestExpand_UntilIsInclusive(t *testing.T) {
	rule := mustParse(t, "FREQ=DAILY;UNTIL=2024-01-03T09:00:00Z")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := Expand(rule, anchor, win, ExpandOptions{})
	assert.Len(t, got, 3, "candidate equal to UNTIL is still an occurrence")
}

func TestExpand_AnchorAfterWindow(t *testing.T) {
	rule := mustParse(t, "FREQ=DAILY")
	anchor := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	assert.Empty(t, Expand(rule, anchor, win, ExpandOptions{}))
}

func TestExpand_UnboundedRuleStaysBounded(t *testing.T) {
	// No terminator: generation must stop at the window bound.
	rule := mustParse(t, "FREQ=DAILY")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	got := Expand(rule, anchor, win, ExpandOptions{})
	assert.Len(t, got, 31)
}

func TestExpand_CountSpentBeforeWindow(t *testing.T) {
	// All five occurrences predate the window; COUNT is consumed by them
	// and nothing leaks into the window.
	rule := mustParse(t, "FREQ=DAILY;COUNT=5")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 2, 1), End: day(2024, 2, 29)}

	assert.Empty(t, Expand(rule, anchor, win, ExpandOptions{}))
}

func TestExpand_DurationPullsInSpanningOccurrence(t *testing.T) {
	// A 3-day weekly occurrence starting Jan 29 spans into a window that
	// opens Jan 30; its start is before the window yet it must be returned.
	rule := mustParse(t, "FREQ=WEEKLY")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 30), End: day(2024, 2, 3)}

	got := Expand(rule, anchor, win, ExpandOptions{Duration: 72 * time.Hour})

	require.NotEmpty(t, got)
	assert.Equal(t, time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC), got[0])
}

func TestExpand_ZeroDurationExcludesPreWindowStart(t *testing.T) {
	// Same window as above but without a duration: the Jan 29 start no
	// longer overlaps and nothing else falls inside.
	rule := mustParse(t, "FREQ=WEEKLY")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 30), End: day(2024, 2, 3)}

	assert.Empty(t, Expand(rule, anchor, win, ExpandOptions{}))
}

func TestExpand_AllDayUsesDateGranularity(t *testing.T) {
	// A late-evening anchor on the window's last day: at instant
	// granularity 23:30 > the midnight window end, at date granularity it
	// is the same day and must be included.
	rule := mustParse(t, "FREQ=DAILY;COUNT=1")
	anchor := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)}

	assert.Empty(t, Expand(rule, anchor, win, ExpandOptions{}))
	assert.Len(t, Expand(rule, anchor, win, ExpandOptions{AllDay: true}), 1)
}

func TestExpand_Idempotent(t *testing.T) {
	rule := mustParse(t, "FREQ=WEEKLY;BYDAY=MO,TH;COUNT=10")
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := Window{Start: day(2024, 1, 1), End: day(2024, 3, 31)}
	opts := ExpandOptions{Duration: time.Hour}

	first := Expand(rule, anchor, win, opts)
	second := Expand(rule, anchor, win, opts)
	assert.Equal(t, first, second)
}

func TestExpand_IntervalSteps(t *testing.T) {
	tests := []struct {
		name   string
		rule   string
		anchor time.Time
		win    Window
		want   []time.Time
	}{
		{
			name:   "every third day",
			rule:   "FREQ=DAILY;INTERVAL=3",
			anchor: day(2024, 1, 1),
			win:    Window{Start: day(2024, 1, 1), End: day(2024, 1, 10)},
			want:   []time.Time{day(2024, 1, 1), day(2024, 1, 4), day(2024, 1, 7), day(2024, 1, 10)},
		},
		{
			name:   "biweekly",
			rule:   "FREQ=WEEKLY;INTERVAL=2",
			anchor: day(2024, 1, 1),
			win:    Window{Start: day(2024, 1, 1), End: day(2024, 1, 31)},
			want:   []time.Time{day(2024, 1, 1), day(2024, 1, 15), day(2024, 1, 29)},
		},
		{
			name:   "yearly leap anchor clamps",
			rule:   "FREQ=YEARLY",
			anchor: day(2024, 2, 29),
			win:    Window{Start: day(2025, 1, 1), End: day(2025, 12, 31)},
			want:   []time.Time{day(2025, 2, 28)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(mustParse(t, tt.rule), tt.anchor, tt.win, ExpandOptions{})
			assert.Equal(t, tt.want, got)
		})
	}
}
