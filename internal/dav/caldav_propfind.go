package dav

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/access"
	"github.com/Feuerhamster/memoria/internal/auth"
	"github.com/Feuerhamster/memoria/internal/store"
)

// CalPropfind lists calendar collections (root) or the events of one
// collection, gated by the collection CTag.
func (h *Handler) CalPropfind(w http.ResponseWriter, r *http.Request) {
	depth := strings.TrimSpace(r.Header.Get("Depth"))
	if depth == "" {
		depth = "1"
	}
	if strings.EqualFold(depth, "infinity") {
		http.Error(w, "depth infinity is not supported", http.StatusForbidden)
		return
	}

	if _, err := parsePropfindBody(r); err != nil {
		http.Error(w, "malformed propfind body", http.StatusBadRequest)
		return
	}

	collection, resource, ok := parseCalendarPath(r.URL.Path, caldavPrefix)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	caller := auth.CallerFromContext(r.Context())
	if collection == "principals" {
		h.caldavPrincipal(w, resource, caller)
		return
	}
	if resource != "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var (
		responses []response
		err       error
	)
	if collection == "" {
		responses, err = h.caldavRootResponses(r.Context(), depth == "1", caller)
	} else {
		responses, err = h.caldavCollectionResponses(r.Context(), collection, depth == "1", caller)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.internalError(w, "caldav propfind failed", err)
		return
	}

	writeMultiStatus(w, caldavMultistatus(responses))
}

// caldavPrincipal answers principal discovery: clients PROPFIND
// /caldav/principals/me and follow calendar-home-set to the calendar root.
func (h *Handler) caldavPrincipal(w http.ResponseWriter, resource string, caller access.Caller) {
	if resource != "me" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if !caller.IsAuthenticated {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	writeMultiStatus(w, caldavMultistatus([]response{principalResponse()}))
}

func (h *Handler) caldavRootResponses(ctx context.Context, listChildren bool, caller access.Caller) ([]response, error) {
	responses := []response{caldavRootResponse()}
	if !listChildren {
		return responses, nil
	}

	spaces, err := h.visibleSpaces(ctx, caller)
	if err != nil {
		return nil, err
	}
	for i := range spaces {
		s := &spaces[i]
		latest, err := h.store.Calendar.MaxLastModified(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, calendarCollectionResponse(s, collectionCTag(latest)))
	}
	return responses, nil
}

func (h *Handler) caldavCollectionResponses(ctx context.Context, collection string, listChildren bool, caller access.Caller) ([]response, error) {
	space, err := h.resolveCalendarCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	latest, err := h.store.Calendar.MaxLastModified(ctx, space.ID)
	if err != nil {
		return nil, err
	}
	responses := []response{calendarCollectionResponse(space, collectionCTag(latest))}
	if !listChildren {
		return responses, nil
	}

	entries, err := h.store.Calendar.ListBySpace(ctx, space.ID)
	if err != nil {
		return nil, err
	}
	readable, err := h.readableEntries(ctx, entries, caller)
	if err != nil {
		return nil, err
	}
	for i := range readable {
		e := &readable[i]
		data, err := encodeCalendarEntry(e)
		if err != nil {
			return nil, err
		}
		responses = append(responses, eventResponse(eventHref(space.ID.String(), e.ID.String()), e, data))
	}
	return responses, nil
}

func (h *Handler) resolveCalendarCollection(ctx context.Context, segment string) (*store.Space, error) {
	id, err := uuid.Parse(segment)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return h.store.Spaces.GetByID(ctx, id)
}

func (h *Handler) readableEntries(ctx context.Context, entries []store.CalendarEntry, caller access.Caller) ([]store.CalendarEntry, error) {
	out := make([]store.CalendarEntry, 0, len(entries))
	for i := range entries {
		ok, err := h.checker.CanAccessEntry(ctx, &entries[i], store.IntentRead, caller)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entries[i])
		}
	}
	return out, nil
}
