// Package ics renders a queried calendar window as an iCalendar document.
// Recurring events are exported once, as their anchor VEVENT carrying an
// RFC 5545 RRULE, so consumers expand them natively.
package ics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/atelierops/calcore/calendar"
	"github.com/atelierops/calcore/recurrence"
	"github.com/atelierops/calcore/storage"
)

const productID = "-//calcore//Calendar Export//EN"

// Encode builds a VCALENDAR from persisted events and projected deadline
// entries. An event whose stored recurrence no longer parses is exported
// without an RRULE rather than aborting the export.
func Encode(events []*storage.Event, deadlines []calendar.Entry) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, event := range events {
		vevent, err := eventComponent(event)
		if err != nil {
			return "", err
		}
		cal.Children = append(cal.Children, vevent.Component)
	}
	for _, entry := range deadlines {
		cal.Children = append(cal.Children, deadlineComponent(entry).Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode calendar: %w", err)
	}
	return buf.String(), nil
}

func eventComponent(event *storage.Event) (*ical.Event, error) {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.ID)
	vevent.Props.SetText(ical.PropSummary, event.Title)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	setStamp(vevent, event.Modified)

	setTime(vevent, ical.PropDateTimeStart, event.StartTime, event.IsAllDay)
	if end, ok := event.EndTime.Get(); ok {
		setTime(vevent, ical.PropDateTimeEnd, end, event.IsAllDay)
	}

	if text, ok := event.Recurrence.Get(); ok {
		rule, err := recurrence.Parse(text)
		if err == nil {
			value, err := rruleValue(rule)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", event.ID, err)
			}
			prop := ical.NewProp(ical.PropRecurrenceRule)
			prop.Value = value
			vevent.Props.Set(prop)
		}
	}

	return vevent, nil
}

func deadlineComponent(entry calendar.Entry) *ical.Event {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, entry.ID)
	vevent.Props.SetText(ical.PropSummary, entry.Title)
	setStamp(vevent, time.Time{})
	setTime(vevent, ical.PropDateTimeStart, entry.StartTime, true)
	return vevent
}

func setStamp(vevent *ical.Event, modified time.Time) {
	if modified.IsZero() {
		modified = time.Now()
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, modified)
}

// setTime writes a DTSTART/DTEND prop, degrading to a DATE value for
// all-day events.
func setTime(vevent *ical.Event, name string, t time.Time, allDay bool) {
	if !allDay {
		vevent.Props.SetDateTime(name, t)
		return
	}
	prop := ical.NewProp(name)
	prop.SetValueType(ical.ValueDate)
	prop.Value = t.Format("20060102")
	vevent.Props.Set(prop)
}

// rruleValue serializes a parsed rule through rrule-go, which validates the
// combination before emitting the RFC 5545 property value.
func rruleValue(rule recurrence.Rule) (string, error) {
	opt := rrule.ROption{
		Freq:     rruleFreq(rule.Freq),
		Interval: rule.Interval,
	}
	if count, ok := rule.Count.Get(); ok {
		opt.Count = count
	}
	if until, ok := rule.Until.Get(); ok {
		opt.Until = until.UTC()
	}
	if rule.Freq == recurrence.FreqWeekly {
		for _, day := range rule.ByDay {
			opt.Byweekday = append(opt.Byweekday, rruleWeekday(day))
		}
	}

	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("serialize rrule: %w", err)
	}
	return opt.RRuleString(), nil
}

func rruleFreq(freq recurrence.Frequency) rrule.Frequency {
	switch freq {
	case recurrence.FreqWeekly:
		return rrule.WEEKLY
	case recurrence.FreqMonthly:
		return rrule.MONTHLY
	case recurrence.FreqYearly:
		return rrule.YEARLY
	default:
		return rrule.DAILY
	}
}

func rruleWeekday(day time.Weekday) rrule.Weekday {
	switch day {
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	case time.Sunday:
		return rrule.SU
	default:
		return rrule.MO
	}
}
