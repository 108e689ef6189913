package dav

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

// CalReport answers calendar-query (time-range filter) and
// calendar-multiget (explicit href list) reports.
func (h *Handler) CalReport(w http.ResponseWriter, r *http.Request) {
	collection, resource, ok := parseCalendarPath(r.URL.Path, caldavPrefix)
	if !ok || collection == "" || resource != "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	body, err := readDAVBody(r)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	var req reportRequest
	if err := safeUnmarshalXML(body, &req); err != nil {
		http.Error(w, "malformed report body", http.StatusBadRequest)
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

	switch req.XMLName.Local {
	case "calendar-query":
		h.calendarQuery(w, r, space, &req)
	case "calendar-multiget":
		h.calendarMultiget(w, r, space, &req)
	default:
		http.Error(w, "unsupported report", http.StatusBadRequest)
	}
}

func (h *Handler) calendarQuery(w http.ResponseWriter, r *http.Request, space *store.Space, req *reportRequest) {
	window, err := extractReportWindow(req)
	if err != nil {
		http.Error(w, "invalid time range", http.StatusBadRequest)
		return
	}

	entries, err := h.store.Calendar.ListBySpace(r.Context(), space.ID)
	if err != nil {
		h.internalError(w, "failed to list entries", err)
		return
	}
	caller := auth.CallerFromContext(r.Context())
	readable, err := h.readableEntries(r.Context(), entries, caller)
	if err != nil {
		h.internalError(w, "access check failed", err)
		return
	}

	matched := filterEntries(readable, window)
	responses := make([]response, 0, len(matched))
	for i := range matched {
		e := &matched[i]
		data, err := encodeCalendarEntry(e)
		if err != nil {
			h.internalError(w, "failed to encode entry", err)
			return
		}
		responses = append(responses, eventResponse(eventHref(space.ID.String(), e.ID.String()), e, data))
	}
	writeMultiStatus(w, caldavMultistatus(responses))
}

func (h *Handler) calendarMultiget(w http.ResponseWriter, r *http.Request, space *store.Space, req *reportRequest) {
	caller := auth.CallerFromContext(r.Context())

	ids := make([]uuid.UUID, 0, len(req.Hrefs))
	for _, href := range req.Hrefs {
		if segment := eventSegmentFromHref(href); segment != "" {
			ids = append(ids, deriveEventID(segment))
		}
	}
	entries, err := h.store.Calendar.ListByIDs(r.Context(), space.ID, ids)
	if err != nil {
		h.internalError(w, "failed to load entries", err)
		return
	}
	byID := make(map[uuid.UUID]*store.CalendarEntry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}

	responses := make([]response, 0, len(req.Hrefs))
	for _, href := range req.Hrefs {
		segment := eventSegmentFromHref(href)
		if segment == "" {
			responses = append(responses, missingResponse(href))
			continue
		}
		entry, ok := byID[deriveEventID(segment)]
		if !ok {
			responses = append(responses, missingResponse(href))
			continue
		}
		readable, err := h.checker.CanAccessEntry(r.Context(), entry, store.IntentRead, caller)
		if err != nil {
			h.internalError(w, "access check failed", err)
			return
		}
		if !readable {
			responses = append(responses, missingResponse(href))
			continue
		}
		data, err := encodeCalendarEntry(entry)
		if err != nil {
			h.internalError(w, "failed to encode entry", err)
			return
		}
		responses = append(responses, eventResponse(href, entry, data))
	}
	writeMultiStatus(w, caldavMultistatus(responses))
}

// extractReportWindow finds the VEVENT time-range inside the comp-filter
// tree of a calendar-query.
func extractReportWindow(req *reportRequest) (timeWindow, error) {
	if req.Filter == nil {
		return timeWindow{}, nil
	}
	if tr := findTimeRange(&req.Filter.CompFilter); tr != nil {
		return parseTimeRange(tr)
	}
	return timeWindow{}, nil
}

func findTimeRange(cf *compFilter) *timeRange {
	if cf.TimeRange != nil {
		return cf.TimeRange
	}
	for i := range cf.CompFilter {
		if tr := findTimeRange(&cf.CompFilter[i]); tr != nil {
			return tr
		}
	}
	return nil
}

// eventSegmentFromHref extracts the event id segment from a multiget href.
func eventSegmentFromHref(href string) string {
	base := path.Base(strings.TrimSuffix(href, "/"))
	segment := strings.TrimSuffix(base, path.Ext(base))
	if segment == "" || segment == "." || segment == "/" {
		return ""
	}
	return segment
}
