package dav

import (
	"net/url"
	"path"
	"strings"
)

// webdavPath is one parsed WebDAV request path. Empty trailing fields mean
// the path stops at a higher node of the virtual tree.
type webdavPath struct {
	Scope    string
	Entity   string
	Folder   string
	FileName string
}

// Depth reports how many segments of the virtual tree the path addresses:
// 0 = root, 1 = scope root, 2 = entity, 3 = policy folder, 4 = file.
func (p webdavPath) Depth() int {
	switch {
	case p.FileName != "":
		return 4
	case p.Folder != "":
		return 3
	case p.Entity != "":
		return 2
	case p.Scope != "":
		return 1
	}
	return 0
}

// parseWebDAVPath splits a request path below the mount prefix into its
// tree segments. Paths with more than four segments do not exist in the
// fixed tree.
func parseWebDAVPath(rawPath, prefix string) (webdavPath, bool) {
	cleaned := path.Clean("/" + strings.TrimPrefix(rawPath, prefix))
	if cleaned == "/" {
		return webdavPath{}, true
	}
	segments := strings.Split(strings.Trim(cleaned, "/"), "/")
	if len(segments) > 4 {
		return webdavPath{}, false
	}
	var p webdavPath
	fields := []*string{&p.Scope, &p.Entity, &p.Folder, &p.FileName}
	for i, seg := range segments {
		unescaped, err := url.PathUnescape(seg)
		if err != nil || unescaped == "" {
			return webdavPath{}, false
		}
		*fields[i] = unescaped
	}
	return p, true
}

// buildHref assembles an absolute href for a tree node, escaping each
// segment.
func buildHref(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, seg := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// parseCalendarPath splits a CalDAV path below the mount prefix into the
// collection segment and the optional resource name (with .ics stripped).
func parseCalendarPath(rawPath, prefix string) (collection, resource string, ok bool) {
	cleaned := path.Clean("/" + strings.TrimPrefix(rawPath, prefix))
	if cleaned == "/" {
		return "", "", true
	}
	segments := strings.Split(strings.Trim(cleaned, "/"), "/")
	if len(segments) > 2 {
		return "", "", false
	}
	collection = segments[0]
	if len(segments) == 2 {
		resource = strings.TrimSuffix(segments[1], path.Ext(segments[1]))
		if resource == "" {
			return "", "", false
		}
	}
	return collection, resource, true
}
