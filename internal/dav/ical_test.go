package dav

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/store"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entry := &store.CalendarEntry{
		ID:           uuid.New(),
		Summary:      "team offsite",
		Description:  "two days in the mountains",
		Location:     "cabin",
		StartDate:    time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 7, 1, 17, 0, 0, 0, time.UTC),
		Sequence:     3,
		LastModified: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := encodeCalendarEntry(entry)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, want := range []string{"UID:" + entry.ID.String(), "SUMMARY:team offsite", "SEQUENCE:3"} {
		if !strings.Contains(data, want) {
			t.Errorf("expected %q in output:\n%s", want, data)
		}
	}

	decoded, err := decodeCalendarObject(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Summary != entry.Summary || decoded.Description != entry.Description || decoded.Location != entry.Location {
		t.Errorf("text fields did not survive: %+v", decoded)
	}
	if !decoded.StartDate.Equal(entry.StartDate) || !decoded.EndDate.Equal(entry.EndDate) {
		t.Errorf("times did not survive: start=%v end=%v", decoded.StartDate, decoded.EndDate)
	}
	if decoded.IsAllDay {
		t.Errorf("timed event decoded as all-day")
	}
}

func TestEncodeAllDayUsesDateValues(t *testing.T) {
	entry := &store.CalendarEntry{
		ID:           uuid.New(),
		Summary:      "holiday",
		StartDate:    time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		IsAllDay:     true,
		LastModified: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := encodeCalendarEntry(entry)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(data, "DTSTART;VALUE=DATE:20240701") {
		t.Errorf("expected date-valued DTSTART, got:\n%s", data)
	}

	decoded, err := decodeCalendarObject(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.IsAllDay {
		t.Errorf("expected all-day to survive the round trip")
	}
}

func TestRecurrenceRuleRoundTrip(t *testing.T) {
	weekly := "WEEKLY"
	interval := 2
	count := 10
	entry := &store.CalendarEntry{
		ID:                  uuid.New(),
		Summary:             "standup",
		StartDate:           time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2024, 7, 1, 9, 15, 0, 0, time.UTC),
		RecurrenceFrequency: &weekly,
		RecurrenceInterval:  &interval,
		RecurrenceCount:     &count,
		LastModified:        time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := encodeCalendarEntry(entry)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(data, "RRULE:FREQ=WEEKLY;INTERVAL=2;COUNT=10") {
		t.Errorf("unexpected RRULE encoding:\n%s", data)
	}

	decoded, err := decodeCalendarObject(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RecurrenceFrequency == nil || *decoded.RecurrenceFrequency != "WEEKLY" {
		t.Errorf("frequency did not survive: %v", decoded.RecurrenceFrequency)
	}
	if decoded.RecurrenceInterval == nil || *decoded.RecurrenceInterval != 2 {
		t.Errorf("interval did not survive: %v", decoded.RecurrenceInterval)
	}
	if decoded.RecurrenceCount == nil || *decoded.RecurrenceCount != 10 {
		t.Errorf("count did not survive: %v", decoded.RecurrenceCount)
	}
}

func TestRecurrenceUntilRoundTrip(t *testing.T) {
	daily := "DAILY"
	until := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	entry := &store.CalendarEntry{
		ID:                  uuid.New(),
		StartDate:           time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
		RecurrenceFrequency: &daily,
		RecurrenceUntil:     &until,
		LastModified:        time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	data, err := encodeCalendarEntry(entry)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeCalendarObject(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RecurrenceUntil == nil || !decoded.RecurrenceUntil.Equal(until) {
		t.Errorf("UNTIL did not survive: %v", decoded.RecurrenceUntil)
	}
}

func TestDecodeDefaultsMissingDTEND(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Client//EN",
		"BEGIN:VEVENT",
		"UID:x",
		"DTSTART:20240701T090000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	decoded, err := decodeCalendarObject(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := decoded.StartDate.Add(time.Hour); !decoded.EndDate.Equal(want) {
		t.Errorf("expected one-hour default for timed events, got %v", decoded.EndDate)
	}
}

func TestDecodeRejectsMissingDTSTART(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Client//EN",
		"BEGIN:VEVENT",
		"UID:x",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	if _, err := decodeCalendarObject(body); err == nil {
		t.Fatalf("expected error for VEVENT without DTSTART")
	}
}

func TestDeriveEventIDStable(t *testing.T) {
	id := uuid.New()
	if got := deriveEventID(id.String()); got != id {
		t.Errorf("UUID segments map to themselves, got %v", got)
	}

	first := deriveEventID("client-uid-1")
	if first != deriveEventID("client-uid-1") {
		t.Errorf("expected stable id for repeated client UIDs")
	}
	if first == deriveEventID("client-uid-2") {
		t.Errorf("expected distinct ids for distinct client UIDs")
	}
}
