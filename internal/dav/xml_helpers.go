package dav

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/http"
)

// safeUnmarshalXML safely unmarshals XML data with protection against XXE attacks.
// It creates a decoder with Entity set to xml.HTMLEntity to prevent external entity injection.
func safeUnmarshalXML(data []byte, v interface{}) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(v)
}

func readDAVBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxDAVBodyBytes))
}

func writeMultiStatus(w http.ResponseWriter, payload multistatus) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(payload)
}

func webdavMultistatus(responses []response) multistatus {
	return multistatus{
		XMLName:  xml.Name{Space: "DAV:", Local: "multistatus"},
		XmlnsD:   "DAV:",
		Response: responses,
	}
}

func caldavMultistatus(responses []response) multistatus {
	return multistatus{
		XMLName:  xml.Name{Space: "DAV:", Local: "multistatus"},
		XmlnsD:   "DAV:",
		XmlnsC:   "urn:ietf:params:xml:ns:caldav",
		XmlnsCS:  "http://calendarserver.org/ns/",
		XmlnsI:   "http://apple.com/ns/ical/",
		Response: responses,
	}
}
