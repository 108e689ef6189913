package dav

import (
	"net/http"

	"github.com/Feuerhamster/memoria/internal/store"
)

// Response builders for the CalDAV multistatus document.

func caldavRootResponse() response {
	return response{
		Href: caldavPrefix + "/",
		Propstat: []propstat{{
			Prop: prop{
				DisplayName:  "Calendars",
				ResourceType: resourceType{Collection: &struct{}{}},
			},
			Status: httpStatusOK,
		}},
	}
}

func principalResponse() response {
	self := caldavPrefix + "/principals/me/"
	return response{
		Href: self,
		Propstat: []propstat{{
			Prop: prop{
				ResourceType:    resourceType{Principal: &struct{}{}},
				PrincipalURL:    &hrefProp{Href: self},
				CalendarHomeSet: &hrefProp{Href: caldavPrefix + "/"},
			},
			Status: httpStatusOK,
		}},
	}
}

func calendarCollectionResponse(s *store.Space, ctag string) response {
	p := prop{
		DisplayName:                   s.Name,
		ResourceType:                  resourceType{Collection: &struct{}{}, Calendar: &struct{}{}},
		CTag:                          ctag,
		SupportedCalendarComponentSet: &supportedCalendarComponentSet{Comps: []comp{{Name: "VEVENT"}}},
	}
	if s.Description != "" {
		p.CalendarDescription = s.Description
	}
	if s.Color != nil && *s.Color != "" {
		p.CalendarColor = *s.Color
	}
	return response{
		Href:     buildHref(caldavPrefix, s.ID.String()) + "/",
		Propstat: []propstat{{Prop: p, Status: httpStatusOK}},
	}
}

func eventResponse(href string, e *store.CalendarEntry, calendarData string) response {
	p := prop{
		GetETag:         calendarETag(e.ID, e.Sequence, e.LastModified),
		GetContentType:  "text/calendar; charset=utf-8",
		GetLastModified: e.LastModified.UTC().Format(http.TimeFormat),
		CalendarData:    cdataString(calendarData),
	}
	return response{
		Href:     href,
		Propstat: []propstat{{Prop: p, Status: httpStatusOK}},
	}
}

func missingResponse(href string) response {
	return response{Href: href, Status: httpStatusNotFound}
}

func eventHref(spaceID, segment string) string {
	return buildHref(caldavPrefix, spaceID, segment+".ics")
}
