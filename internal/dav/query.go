package dav

import (
	"strconv"
	"time"

	"github.com/Feuerhamster/memoria/internal/store"
)

// timeWindow is a queried interval. Zero bounds are open.
type timeWindow struct {
	Start time.Time
	End   time.Time
}

func (w timeWindow) open() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// entryMayOverlap reports whether an entry can produce occurrences inside
// the window. Non-recurring entries use the classic interval overlap with
// strict bounds; an entry that ends exactly at the window start does not
// match. Recurring entries are matched conservatively: the entry starts
// before the window closes and its UNTIL bound (when set) has not passed
// before the window opens. Exact occurrence expansion is the client's job.
func entryMayOverlap(e *store.CalendarEntry, w timeWindow) bool {
	if w.open() {
		return true
	}

	if !e.Recurring() {
		if !w.Start.IsZero() && !e.EndDate.After(w.Start) {
			return false
		}
		if !w.End.IsZero() && !e.StartDate.Before(w.End) {
			return false
		}
		return true
	}

	if !w.End.IsZero() && e.StartDate.After(w.End) {
		return false
	}
	if e.RecurrenceUntil != nil && !w.Start.IsZero() && e.RecurrenceUntil.Before(w.Start) {
		return false
	}
	return true
}

// filterEntries returns the entries that may overlap the window, preserving
// order.
func filterEntries(entries []store.CalendarEntry, w timeWindow) []store.CalendarEntry {
	matched := make([]store.CalendarEntry, 0, len(entries))
	for i := range entries {
		if entryMayOverlap(&entries[i], w) {
			matched = append(matched, entries[i])
		}
	}
	return matched
}

// collectionCTag derives the collection change tag from the newest
// last-modified instant; 0 for an empty collection. Clients compare CTags to
// decide whether a refetch is needed.
func collectionCTag(maxLastModified time.Time) string {
	if maxLastModified.IsZero() {
		return "0"
	}
	return strconv.FormatInt(maxLastModified.UTC().UnixNano(), 10)
}

// parseTimeRange converts a CalDAV time-range element into a window.
func parseTimeRange(tr *timeRange) (timeWindow, error) {
	var w timeWindow
	if tr == nil {
		return w, nil
	}
	if tr.Start != "" {
		t, err := parseICalDateTime(tr.Start)
		if err != nil {
			return w, err
		}
		w.Start = t
	}
	if tr.End != "" {
		t, err := parseICalDateTime(tr.End)
		if err != nil {
			return w, err
		}
		w.End = t
	}
	return w, nil
}

var icalDateTimeFormats = []string{
	"20060102",
	"20060102T150405",
	"20060102T150405Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
}

func parseICalDateTime(s string) (time.Time, error) {
	var lastErr error
	for _, format := range icalDateTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
