package dav

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Feuerhamster/memoria/internal/locks"
	"github.com/Feuerhamster/memoria/internal/store"
)

// Response builders for the WebDAV multistatus document.

func collectionResponse(href, name string, createdAt time.Time) response {
	p := prop{
		DisplayName:  name,
		ResourceType: resourceType{Collection: &struct{}{}},
	}
	if !createdAt.IsZero() {
		p.CreationDate = createdAt.UTC().Format(time.RFC3339)
	}
	return response{
		Href:     href,
		Propstat: []propstat{{Prop: p, Status: httpStatusOK}},
	}
}

func fileResponse(href string, f *store.FileResource, active []*locks.Lock) response {
	p := prop{
		DisplayName:      f.FileName,
		ResourceType:     resourceType{},
		GetETag:          fileETag(f),
		GetContentType:   f.ContentType,
		GetContentLength: strconv.FormatInt(f.SizeBytes, 10),
		GetLastModified:  f.UploadedAt.UTC().Format(http.TimeFormat),
		CreationDate:     f.UploadedAt.UTC().Format(time.RFC3339),
		SupportedLock:    fileSupportedLock(),
	}
	if len(active) > 0 {
		p.LockDiscovery = lockDiscoveryProp(active)
	}
	return response{
		Href:     href,
		Propstat: []propstat{{Prop: p, Status: httpStatusOK}},
	}
}

func fileSupportedLock() *supportedLock {
	return &supportedLock{
		Entries: []lockEntry{
			{
				Scope: lockScopeEl{Exclusive: &struct{}{}},
				Type:  lockTypeEl{Write: &struct{}{}},
			},
			{
				Scope: lockScopeEl{Shared: &struct{}{}},
				Type:  lockTypeEl{Write: &struct{}{}},
			},
		},
	}
}

func lockDiscoveryProp(active []*locks.Lock) *lockDiscovery {
	d := &lockDiscovery{}
	now := time.Now()
	for _, l := range active {
		d.Active = append(d.Active, activeLockEl(l, now))
	}
	return d
}

func activeLockEl(l *locks.Lock, now time.Time) activeLock {
	el := activeLock{
		Type:      lockTypeEl{Write: &struct{}{}},
		Depth:     l.Depth,
		Timeout:   lockTimeoutValue(l, now),
		LockToken: &hrefProp{Href: l.Token},
	}
	if l.Scope == locks.ScopeShared {
		el.Scope = lockScopeEl{Shared: &struct{}{}}
	} else {
		el.Scope = lockScopeEl{Exclusive: &struct{}{}}
	}
	if l.OwnerInfo != "" {
		el.Owner = &lockOwnerEl{Text: l.OwnerInfo}
	}
	return el
}

func lockTimeoutValue(l *locks.Lock, now time.Time) string {
	seconds := l.TimeoutSeconds(now)
	if seconds < 0 {
		return "Infinite"
	}
	return fmt.Sprintf("Second-%d", seconds)
}
