package dav

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

// CalGet serves one event as iCalendar text.
func (h *Handler) CalGet(w http.ResponseWriter, r *http.Request) {
	_, entry, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	etag := calendarETag(entry.ID, entry.Sequence, entry.LastModified)
	if checkIfNoneMatch(r, etag) {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	readable, err := h.checker.CanAccessEntry(r.Context(), entry, store.IntentRead, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !readable {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	data, err := encodeCalendarEntry(entry)
	if err != nil {
		h.internalError(w, "failed to encode entry", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", entry.LastModified.UTC().Format(http.TimeFormat))
	_, _ = w.Write([]byte(data))
}

// CalPut creates or updates an event. Repeated PUTs with the same client
// UID converge on one row; every successful update increments the sequence.
func (h *Handler) CalPut(w http.ResponseWriter, r *http.Request) {
	collection, resource, ok := parseCalendarPath(r.URL.Path, caldavPrefix)
	if !ok || collection == "" || resource == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	if !caller.IsAuthenticated {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	space, err := h.resolveCalendarCollection(r.Context(), collection)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.internalError(w, "failed to resolve collection", err)
		return
	}

	body, err := readDAVBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	decoded, err := decodeCalendarObject(string(body))
	if err != nil {
		http.Error(w, "malformed calendar object", http.StatusBadRequest)
		return
	}

	entryID := deriveEventID(resource)
	existing, err := h.store.Calendar.Get(r.Context(), space.ID, entryID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.internalError(w, "failed to resolve entry", err)
		return
	}

	if existing != nil {
		h.updateEvent(w, r, existing, decoded, caller)
		return
	}
	h.createEvent(w, r, space, entryID, decoded, caller)
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request, entry *store.CalendarEntry, decoded *decodedEvent, caller access.Caller) {
	writable, err := h.checker.CanAccessEntry(r.Context(), entry, store.IntentWrite, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !writable {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !checkIfMatch(r, calendarETag(entry.ID, entry.Sequence, entry.LastModified)) {
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
		return
	}

	applyDecodedEvent(entry, decoded)
	entry.Sequence++
	entry.LastModified = nowTimestamp()
	if err := h.store.Calendar.Update(r.Context(), *entry); err != nil {
		h.internalError(w, "failed to update entry", err)
		return
	}

	w.Header().Set("ETag", calendarETag(entry.ID, entry.Sequence, entry.LastModified))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request, space *store.Space, entryID uuid.UUID, decoded *decodedEvent, caller access.Caller) {
	member, err := h.checker.IsSpaceMember(r.Context(), space.ID, caller.UserID)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !member {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	now := nowTimestamp()
	entry := store.CalendarEntry{
		ID:           entryID,
		OwnerUserID:  caller.UserID,
		SpaceID:      space.ID,
		AccessPolicy: store.PolicyMembers,
		Sequence:     0,
		CreatedAt:    now,
		LastModified: now,
	}
	applyDecodedEvent(&entry, decoded)

	if err := h.store.Calendar.Insert(r.Context(), entry); err != nil {
		h.internalError(w, "failed to create entry", err)
		return
	}

	w.Header().Set("ETag", calendarETag(entry.ID, entry.Sequence, entry.LastModified))
	w.WriteHeader(http.StatusCreated)
}

// CalDelete removes one event. 204 on success.
func (h *Handler) CalDelete(w http.ResponseWriter, r *http.Request) {
	space, entry, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	caller := auth.CallerFromContext(r.Context())
	writable, err := h.checker.CanAccessEntry(r.Context(), entry, store.IntentWrite, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}
	if !writable {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !checkIfMatch(r, calendarETag(entry.ID, entry.Sequence, entry.LastModified)) {
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
		return
	}

	if err := h.store.Calendar.Delete(r.Context(), space.ID, entry.ID); err != nil {
		h.internalError(w, "failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveEvent parses the request path and loads the addressed entry. On
// failure it has already written the response.
func (h *Handler) resolveEvent(w http.ResponseWriter, r *http.Request) (*store.Space, *store.CalendarEntry, bool) {
	collection, resource, ok := parseCalendarPath(r.URL.Path, caldavPrefix)
	if !ok || collection == "" || resource == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, nil, false
	}

	space, err := h.resolveCalendarCollection(r.Context(), collection)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return nil, nil, false
		}
		h.internalError(w, "failed to resolve collection", err)
		return nil, nil, false
	}

	entry, err := h.store.Calendar.Get(r.Context(), space.ID, deriveEventID(resource))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return nil, nil, false
		}
		h.internalError(w, "failed to load entry", err)
		return nil, nil, false
	}
	return space, entry, true
}

// nowTimestamp truncates to the microsecond precision of the timestamptz
// columns, so ETags derived before and after a database round trip agree.
func nowTimestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func applyDecodedEvent(entry *store.CalendarEntry, decoded *decodedEvent) {
	entry.Summary = decoded.Summary
	entry.Description = decoded.Description
	entry.Location = decoded.Location
	entry.StartDate = decoded.StartDate
	entry.EndDate = decoded.EndDate
	entry.IsAllDay = decoded.IsAllDay
	entry.RecurrenceFrequency = decoded.RecurrenceFrequency
	entry.RecurrenceInterval = decoded.RecurrenceInterval
	entry.RecurrenceCount = decoded.RecurrenceCount
	entry.RecurrenceUntil = decoded.RecurrenceUntil
}
