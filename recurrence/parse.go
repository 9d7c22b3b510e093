package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// ParseError describes a rejected recurrence string. Token carries the part
// of the input that failed so write-path rejections can point at it.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("recurrence: %s", e.Reason)
	}
	return fmt.Sprintf("recurrence: invalid token %q: %s", e.Token, e.Reason)
}

var weekdayTokens = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

var frequencyTokens = map[string]Frequency{
	"DAILY":   FreqDaily,
	"WEEKLY":  FreqWeekly,
	"MONTHLY": FreqMonthly,
	"YEARLY":  FreqYearly,
}

// Parse parses the compact grammar
//
//	FREQ=<DAILY|WEEKLY|MONTHLY|YEARLY>[;INTERVAL=<int>][;COUNT=<int>|;UNTIL=<RFC3339>][;BYDAY=<MO,TU,...>]
//
// Unknown and duplicate keys are rejected rather than ignored: a typo that
// silently changed recurrence semantics would be far worse than a rejected
// write. COUNT and UNTIL are mutually exclusive.
func Parse(text string) (Rule, error) {
	rule := Rule{Interval: 1}

	if strings.TrimSpace(text) == "" {
		return Rule{}, &ParseError{Reason: "empty rule"}
	}

	seen := make(map[string]bool)
	hasFreq := false

	for _, part := range strings.Split(text, ";") {
		key, value, found := strings.Cut(part, "=")
		if !found || key == "" || value == "" {
			return Rule{}, &ParseError{Token: part, Reason: "expected KEY=VALUE"}
		}
		if seen[key] {
			return Rule{}, &ParseError{Token: part, Reason: "duplicate key"}
		}
		seen[key] = true

		switch key {
		case "FREQ":
			freq, ok := frequencyTokens[value]
			if !ok {
				return Rule{}, &ParseError{Token: part, Reason: "unknown frequency"}
			}
			rule.Freq = freq
			hasFreq = true

		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, &ParseError{Token: part, Reason: "interval is not an integer"}
			}
			if n < 1 {
				return Rule{}, &ParseError{Token: part, Reason: "interval must be >= 1"}
			}
			rule.Interval = n

		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Rule{}, &ParseError{Token: part, Reason: "count is not an integer"}
			}
			if n < 1 {
				return Rule{}, &ParseError{Token: part, Reason: "count must be >= 1"}
			}
			rule.Count = mo.Some(n)

		case "UNTIL":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return Rule{}, &ParseError{Token: part, Reason: "until is not an RFC 3339 instant"}
			}
			rule.Until = mo.Some(t)

		case "BYDAY":
			days, err := parseByDay(part, value)
			if err != nil {
				return Rule{}, err
			}
			rule.ByDay = days

		default:
			return Rule{}, &ParseError{Token: part, Reason: "unknown key"}
		}
	}

	if !hasFreq {
		return Rule{}, &ParseError{Reason: "missing FREQ"}
	}
	if rule.Count.IsPresent() && rule.Until.IsPresent() {
		return Rule{}, &ParseError{Reason: "COUNT and UNTIL are mutually exclusive"}
	}

	return rule, nil
}

// IsValid reports whether text parses as a well-formed rule. It never
// panics; any malformed input reduces to false. The write path uses this to
// gate recurrence strings before they are persisted.
func IsValid(text string) bool {
	_, err := Parse(text)
	return err == nil
}

func parseByDay(token, value string) ([]time.Weekday, error) {
	var days []time.Weekday
	present := make(map[time.Weekday]bool)

	for _, part := range strings.Split(value, ",") {
		day, ok := weekdayTokens[part]
		if !ok {
			return nil, &ParseError{Token: token, Reason: fmt.Sprintf("unknown weekday %q", part)}
		}
		if !present[day] {
			present[day] = true
			days = append(days, day)
		}
	}

	sort.Slice(days, func(i, j int) bool {
		return mondayIndex(days[i]) < mondayIndex(days[j])
	})
	return days, nil
}
