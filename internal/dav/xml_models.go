package dav

import "encoding/xml"

// XML response models for DAV PROPFIND/REPORT responses and parse models for
// request bodies.

type multistatus struct {
	XMLName  xml.Name   `xml:"d:multistatus"`
	XmlnsD   string     `xml:"xmlns:d,attr"`
	XmlnsC   string     `xml:"xmlns:cal,attr,omitempty"`
	XmlnsCS  string     `xml:"xmlns:cs,attr,omitempty"`
	XmlnsI   string     `xml:"xmlns:ical,attr,omitempty"`
	Response []response `xml:"d:response"`
}

type response struct {
	Href     string     `xml:"d:href"`
	Propstat []propstat `xml:"d:propstat,omitempty"`
	Status   string     `xml:"d:status,omitempty"`
}

type propstat struct {
	Prop   prop   `xml:"d:prop"`
	Status string `xml:"d:status"`
}

type prop struct {
	DisplayName                   string                         `xml:"d:displayname,omitempty"`
	ResourceType                  resourceType                   `xml:"d:resourcetype"`
	CreationDate                  string                         `xml:"d:creationdate,omitempty"`
	GetETag                       string                         `xml:"d:getetag,omitempty"`
	GetContentType                string                         `xml:"d:getcontenttype,omitempty"`
	GetContentLength              string                         `xml:"d:getcontentlength,omitempty"`
	GetLastModified               string                         `xml:"d:getlastmodified,omitempty"`
	SupportedLock                 *supportedLock                 `xml:"d:supportedlock,omitempty"`
	LockDiscovery                 *lockDiscovery                 `xml:"d:lockdiscovery,omitempty"`
	CTag                          string                         `xml:"cs:getctag,omitempty"`
	CalendarDescription           string                         `xml:"cal:calendar-description,omitempty"`
	CalendarColor                 string                         `xml:"ical:calendar-color,omitempty"`
	SupportedCalendarComponentSet *supportedCalendarComponentSet `xml:"cal:supported-calendar-component-set,omitempty"`
	CalendarData                  cdataString                    `xml:"cal:calendar-data,omitempty"`
	PrincipalURL                  *hrefProp                      `xml:"d:principal-URL,omitempty"`
	CalendarHomeSet               *hrefProp                      `xml:"cal:calendar-home-set,omitempty"`
}

type resourceType struct {
	Collection *struct{} `xml:"d:collection,omitempty"`
	Calendar   *struct{} `xml:"cal:calendar,omitempty"`
	Principal  *struct{} `xml:"d:principal,omitempty"`
}

// cdataString wraps string content in CDATA for raw XML output.
type cdataString string

func (c cdataString) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if c == "" {
		return nil
	}
	return e.EncodeElement(struct {
		S string `xml:",cdata"`
	}{S: string(c)}, start)
}

type supportedCalendarComponentSet struct {
	Comps []comp `xml:"cal:comp"`
}

type comp struct {
	Name string `xml:"name,attr"`
}

// supportedLock advertises the lock capabilities of file resources.
type supportedLock struct {
	Entries []lockEntry `xml:"d:lockentry"`
}

type lockEntry struct {
	Scope lockScopeEl `xml:"d:lockscope"`
	Type  lockTypeEl  `xml:"d:locktype"`
}

type lockScopeEl struct {
	Exclusive *struct{} `xml:"d:exclusive,omitempty"`
	Shared    *struct{} `xml:"d:shared,omitempty"`
}

type lockTypeEl struct {
	Write *struct{} `xml:"d:write,omitempty"`
}

// lockDiscovery lists the active locks on a resource.
type lockDiscovery struct {
	Active []activeLock `xml:"d:activelock"`
}

type activeLock struct {
	Scope     lockScopeEl  `xml:"d:lockscope"`
	Type      lockTypeEl   `xml:"d:locktype"`
	Depth     string       `xml:"d:depth"`
	Owner     *lockOwnerEl `xml:"d:owner,omitempty"`
	Timeout   string       `xml:"d:timeout,omitempty"`
	LockToken *hrefProp    `xml:"d:locktoken,omitempty"`
}

type lockOwnerEl struct {
	Text string `xml:",chardata"`
}

type hrefProp struct {
	Href string `xml:"d:href"`
}

// lockResponse is the standalone prop body returned by LOCK.
type lockResponse struct {
	XMLName       xml.Name      `xml:"d:prop"`
	XmlnsD        string        `xml:"xmlns:d,attr"`
	LockDiscovery lockDiscovery `xml:"d:lockdiscovery"`
}

// propfindRequest represents a PROPFIND request body (RFC 4918 Section 9.1).
type propfindRequest struct {
	XMLName  xml.Name
	AllProp  *struct{}          `xml:"DAV: allprop"`
	PropName *struct{}          `xml:"DAV: propname"`
	Prop     *propfindPropQuery `xml:"DAV: prop"`
}

type propfindPropQuery struct {
	DisplayName                   *struct{} `xml:"DAV: displayname"`
	ResourceType                  *struct{} `xml:"DAV: resourcetype"`
	GetETag                       *struct{} `xml:"DAV: getetag"`
	GetContentType                *struct{} `xml:"DAV: getcontenttype"`
	GetLastModified               *struct{} `xml:"DAV: getlastmodified"`
	SupportedLock                 *struct{} `xml:"DAV: supportedlock"`
	LockDiscovery                 *struct{} `xml:"DAV: lockdiscovery"`
	CTag                          *struct{} `xml:"http://calendarserver.org/ns/ getctag"`
	CalendarData                  *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
	SupportedCalendarComponentSet *struct{} `xml:"urn:ietf:params:xml:ns:caldav supported-calendar-component-set"`
}

// lockRequest represents a LOCK request body (RFC 4918 Section 9.10).
type lockRequest struct {
	XMLName xml.Name       `xml:"DAV: lockinfo"`
	Scope   lockScopeQuery `xml:"DAV: lockscope"`
	Type    lockTypeQuery  `xml:"DAV: locktype"`
	Owner   *lockOwnerBody `xml:"DAV: owner"`
}

type lockScopeQuery struct {
	Exclusive *struct{} `xml:"DAV: exclusive"`
	Shared    *struct{} `xml:"DAV: shared"`
}

type lockTypeQuery struct {
	Write *struct{} `xml:"DAV: write"`
}

type lockOwnerBody struct {
	Text string `xml:",innerxml"`
}

// reportRequest represents a CalDAV REPORT body: calendar-query carries a
// filter, calendar-multiget carries hrefs.
type reportRequest struct {
	XMLName xml.Name
	Hrefs   []string   `xml:"DAV: href"`
	Filter  *calFilter `xml:"urn:ietf:params:xml:ns:caldav filter"`
}

// calFilter represents a CalDAV calendar-query filter (RFC 4791 Section 9.7).
type calFilter struct {
	CompFilter compFilter `xml:"urn:ietf:params:xml:ns:caldav comp-filter"`
}

type compFilter struct {
	Name       string       `xml:"name,attr"`
	TimeRange  *timeRange   `xml:"urn:ietf:params:xml:ns:caldav time-range"`
	CompFilter []compFilter `xml:"urn:ietf:params:xml:ns:caldav comp-filter"`
}

type timeRange struct {
	Start string `xml:"start,attr"`
	End   string `xml:"end,attr"`
}
