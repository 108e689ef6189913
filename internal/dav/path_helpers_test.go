package dav

import (
	"testing"

	"github.com/Feuerhamster/memoria/internal/store"
)

func TestParseWebDAVPath(t *testing.T) {
	cases := []struct {
		raw     string
		want    webdavPath
		wantOK  bool
		comment string
	}{
		{"/webdav/", webdavPath{}, true, "root"},
		{"/webdav/users", webdavPath{Scope: "users"}, true, "scope"},
		{"/webdav/spaces/team", webdavPath{Scope: "spaces", Entity: "team"}, true, "entity"},
		{"/webdav/spaces/team/public", webdavPath{Scope: "spaces", Entity: "team", Folder: "public"}, true, "folder"},
		{"/webdav/spaces/team/public/a.txt", webdavPath{Scope: "spaces", Entity: "team", Folder: "public", FileName: "a.txt"}, true, "file"},
		{"/webdav/spaces/team/public/a.txt/extra", webdavPath{}, false, "too deep"},
		{"/webdav/spaces/my%20team/public/a%20b.txt", webdavPath{Scope: "spaces", Entity: "my team", Folder: "public", FileName: "a b.txt"}, true, "escaped"},
		{"/webdav/spaces/../users/alice", webdavPath{Scope: "users", Entity: "alice"}, true, "dot segments collapse"},
	}
	for _, tc := range cases {
		got, ok := parseWebDAVPath(tc.raw, webdavPrefix)
		if ok != tc.wantOK {
			t.Errorf("%s: parse %q ok=%v, want %v", tc.comment, tc.raw, ok, tc.wantOK)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: parse %q = %+v, want %+v", tc.comment, tc.raw, got, tc.want)
		}
	}
}

func TestWebdavPathDepth(t *testing.T) {
	cases := []struct {
		p    webdavPath
		want int
	}{
		{webdavPath{}, 0},
		{webdavPath{Scope: "users"}, 1},
		{webdavPath{Scope: "users", Entity: "alice"}, 2},
		{webdavPath{Scope: "users", Entity: "alice", Folder: "private"}, 3},
		{webdavPath{Scope: "users", Entity: "alice", Folder: "private", FileName: "a"}, 4},
	}
	for _, tc := range cases {
		if got := tc.p.Depth(); got != tc.want {
			t.Errorf("Depth(%+v) = %d, want %d", tc.p, got, tc.want)
		}
	}
}

func TestParseCalendarPath(t *testing.T) {
	cases := []struct {
		raw            string
		wantCollection string
		wantResource   string
		wantOK         bool
	}{
		{"/caldav/", "", "", true},
		{"/caldav/abc", "abc", "", true},
		{"/caldav/abc/", "abc", "", true},
		{"/caldav/abc/event.ics", "abc", "event", true},
		{"/caldav/abc/event", "abc", "event", true},
		{"/caldav/abc/event.ics/extra", "", "", false},
	}
	for _, tc := range cases {
		collection, resource, ok := parseCalendarPath(tc.raw, caldavPrefix)
		if ok != tc.wantOK || collection != tc.wantCollection || resource != tc.wantResource {
			t.Errorf("parse %q = (%q, %q, %v), want (%q, %q, %v)",
				tc.raw, collection, resource, ok, tc.wantCollection, tc.wantResource, tc.wantOK)
		}
	}
}

func TestBuildHrefEscapesSegments(t *testing.T) {
	got := buildHref(webdavPrefix, "spaces", "my team", "public", "a b.txt")
	want := "/webdav/spaces/my%20team/public/a%20b.txt"
	if got != want {
		t.Errorf("buildHref = %q, want %q", got, want)
	}
}

func TestParseDestinationHeader(t *testing.T) {
	cases := []struct {
		header string
		wantOK bool
	}{
		{"", false},
		{"/webdav/spaces/team/public/a.txt", true},
		{"https://dav.example.com/webdav/spaces/team/public/a.txt", true},
		{"/webdav/spaces/team/public", false},
		{"/elsewhere/spaces/team/public/a.txt", false},
	}
	for _, tc := range cases {
		if _, ok := parseDestinationHeader(tc.header); ok != tc.wantOK {
			t.Errorf("parseDestinationHeader(%q) ok=%v, want %v", tc.header, ok, tc.wantOK)
		}
	}

	target, ok := parseDestinationHeader("https://dav.example.com/webdav/spaces/team/public/a.txt")
	if !ok || target.FileName != "a.txt" || target.Entity != "team" {
		t.Errorf("expected absolute URL destination to parse, got %+v ok=%v", target, ok)
	}
}

func TestMapPolicyFolder(t *testing.T) {
	cases := []struct {
		folder  string
		isSpace bool
		want    store.AccessPolicy
		wantErr bool
	}{
		{"public", true, store.PolicyPublic, false},
		{"shared", true, store.PolicyShared, false},
		{"members", true, store.PolicyMembers, false},
		{"members", false, store.PolicyMembers, false},
		{"private", true, store.PolicyMembers, false},
		{"private", false, store.PolicyPrivate, false},
		{"trash", true, 0, true},
		{"unknown", false, 0, true},
	}
	for _, tc := range cases {
		got, err := mapPolicyFolder(tc.folder, tc.isSpace)
		if (err != nil) != tc.wantErr {
			t.Errorf("mapPolicyFolder(%q, space=%v) err=%v, wantErr=%v", tc.folder, tc.isSpace, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("mapPolicyFolder(%q, space=%v) = %v, want %v", tc.folder, tc.isSpace, got, tc.want)
		}
	}
}
