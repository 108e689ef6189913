package dav

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/Feuerhamster/memoria/internal/store"
)

const icalProductID = "-//Memoria//Memoria Calendar//EN"

const (
	icalDateFormat = "20060102"
	icalUTCFormat  = "20060102T150405Z"
)

// encodeCalendarEntry serializes an entry as an RFC 5545 VCALENDAR with a
// single VEVENT.
func encodeCalendarEntry(e *store.CalendarEntry) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, icalProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, e.ID.String())
	event.Props.SetDateTime(ical.PropDateTimeStamp, e.LastModified.UTC())
	event.Props.SetDateTime(ical.PropLastModified, e.LastModified.UTC())

	if e.IsAllDay {
		setDateProp(event.Props, ical.PropDateTimeStart, e.StartDate)
		setDateProp(event.Props, ical.PropDateTimeEnd, e.EndDate)
	} else {
		event.Props.SetDateTime(ical.PropDateTimeStart, e.StartDate.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, e.EndDate.UTC())
	}

	if e.Summary != "" {
		event.Props.SetText(ical.PropSummary, e.Summary)
	}
	if e.Description != "" {
		event.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		event.Props.SetText(ical.PropLocation, e.Location)
	}

	seq := ical.NewProp(ical.PropSequence)
	seq.Value = strconv.Itoa(e.Sequence)
	event.Props.Set(seq)

	if rule := recurrenceRuleString(e); rule != "" {
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = rule
		event.Props.Set(p)
	}

	cal.Children = append(cal.Children, event.Component)

	var b strings.Builder
	if err := ical.NewEncoder(&b).Encode(cal); err != nil {
		return "", err
	}
	return b.String(), nil
}

func setDateProp(props ical.Props, name string, t time.Time) {
	p := ical.NewProp(name)
	p.SetValueType(ical.ValueDate)
	p.Value = t.UTC().Format(icalDateFormat)
	props.Set(p)
}

// recurrenceRuleString renders the modeled recurrence subset
// (FREQ/INTERVAL/COUNT/UNTIL) as an RRULE value.
func recurrenceRuleString(e *store.CalendarEntry) string {
	if !e.Recurring() {
		return ""
	}
	parts := []string{"FREQ=" + strings.ToUpper(*e.RecurrenceFrequency)}
	if e.RecurrenceInterval != nil && *e.RecurrenceInterval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", *e.RecurrenceInterval))
	}
	if e.RecurrenceCount != nil && *e.RecurrenceCount > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", *e.RecurrenceCount))
	}
	if e.RecurrenceUntil != nil {
		parts = append(parts, "UNTIL="+e.RecurrenceUntil.UTC().Format(icalUTCFormat))
	}
	return strings.Join(parts, ";")
}

// decodedEvent carries the VEVENT fields a PUT may set.
type decodedEvent struct {
	UID                 string
	Summary             string
	Description         string
	Location            string
	StartDate           time.Time
	EndDate             time.Time
	IsAllDay            bool
	RecurrenceFrequency *string
	RecurrenceInterval  *int
	RecurrenceCount     *int
	RecurrenceUntil     *time.Time
}

// decodeCalendarObject parses an iCalendar body and extracts its first
// VEVENT.
func decodeCalendarObject(body string) (*decodedEvent, error) {
	cal, err := ical.NewDecoder(strings.NewReader(body)).Decode()
	if err != nil {
		return nil, fmt.Errorf("parse icalendar: %w", err)
	}

	events := cal.Events()
	if len(events) == 0 {
		return nil, fmt.Errorf("no VEVENT in calendar object")
	}
	event := events[0]

	out := &decodedEvent{}
	if p := event.Props.Get(ical.PropUID); p != nil {
		out.UID = strings.TrimSpace(p.Value)
	}
	if p := event.Props.Get(ical.PropSummary); p != nil {
		if text, err := p.Text(); err == nil {
			out.Summary = text
		}
	}
	if p := event.Props.Get(ical.PropDescription); p != nil {
		if text, err := p.Text(); err == nil {
			out.Description = text
		}
	}
	if p := event.Props.Get(ical.PropLocation); p != nil {
		if text, err := p.Text(); err == nil {
			out.Location = text
		}
	}

	start := event.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return nil, fmt.Errorf("missing DTSTART")
	}
	out.IsAllDay = start.ValueType() == ical.ValueDate
	out.StartDate, err = start.DateTime(time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid DTSTART: %w", err)
	}
	out.StartDate = out.StartDate.UTC()

	if end := event.Props.Get(ical.PropDateTimeEnd); end != nil {
		out.EndDate, err = end.DateTime(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid DTEND: %w", err)
		}
		out.EndDate = out.EndDate.UTC()
	} else if out.IsAllDay {
		out.EndDate = out.StartDate.Add(24 * time.Hour)
	} else {
		out.EndDate = out.StartDate.Add(time.Hour)
	}

	if p := event.Props.Get(ical.PropRecurrenceRule); p != nil {
		if err := applyRecurrenceRule(out, p.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// applyRecurrenceRule maps an RRULE onto the modeled subset. Parts beyond
// FREQ/INTERVAL/COUNT/UNTIL are dropped.
func applyRecurrenceRule(out *decodedEvent, rule string) error {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return fmt.Errorf("invalid RRULE: %w", err)
	}

	freq := frequencyName(opt.Freq)
	if freq == "" {
		return fmt.Errorf("unsupported RRULE frequency")
	}
	out.RecurrenceFrequency = &freq
	if opt.Interval > 1 {
		interval := opt.Interval
		out.RecurrenceInterval = &interval
	}
	if opt.Count > 0 {
		count := opt.Count
		out.RecurrenceCount = &count
	}
	if !opt.Until.IsZero() {
		until := opt.Until.UTC()
		out.RecurrenceUntil = &until
	}
	return nil
}

func frequencyName(f rrule.Frequency) string {
	switch f {
	case rrule.DAILY:
		return "DAILY"
	case rrule.WEEKLY:
		return "WEEKLY"
	case rrule.MONTHLY:
		return "MONTHLY"
	case rrule.YEARLY:
		return "YEARLY"
	}
	return ""
}

// deriveEventID resolves a URL id segment to a row id. Client-generated UIDs
// that are not UUIDs hash to a stable UUID so repeated PUTs from the same
// client converge on one row.
func deriveEventID(segment string) uuid.UUID {
	if id, err := uuid.Parse(segment); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(segment))
}
