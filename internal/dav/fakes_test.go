package dav

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Feuerhamster/memoria/internal/store"
)

// In-memory repositories for handler tests.

type fakeUserRepo struct {
	users []store.User
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*store.User, error) {
	for i := range f.users {
		if f.users[i].Username == username {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context) ([]store.User, error) {
	return append([]store.User(nil), f.users...), nil
}

type fakeSpaceRepo struct {
	spaces  []store.Space
	members map[uuid.UUID][]uuid.UUID
}

func (f *fakeSpaceRepo) GetByID(_ context.Context, id uuid.UUID) (*store.Space, error) {
	for i := range f.spaces {
		if f.spaces[i].ID == id {
			s := f.spaces[i]
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSpaceRepo) GetByName(_ context.Context, name string) (*store.Space, error) {
	for i := range f.spaces {
		if f.spaces[i].Name == name {
			s := f.spaces[i]
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSpaceRepo) ListMemberSpaces(_ context.Context, userID uuid.UUID) ([]store.Space, error) {
	var out []store.Space
	for i := range f.spaces {
		s := f.spaces[i]
		if s.OwnerUserID == userID {
			out = append(out, s)
			continue
		}
		for _, m := range f.members[s.ID] {
			if m == userID {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSpaceRepo) ListOpenSpaces(_ context.Context, maxPolicy store.AccessPolicy) ([]store.Space, error) {
	var out []store.Space
	for i := range f.spaces {
		if f.spaces[i].Visibility < maxPolicy {
			out = append(out, f.spaces[i])
		}
	}
	return out, nil
}

func (f *fakeSpaceRepo) IsMember(_ context.Context, spaceID, userID uuid.UUID) (bool, error) {
	for i := range f.spaces {
		if f.spaces[i].ID == spaceID && f.spaces[i].OwnerUserID == userID {
			return true, nil
		}
	}
	for _, m := range f.members[spaceID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeFileRepo struct {
	files map[uuid.UUID]store.FileResource
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[uuid.UUID]store.FileResource)}
}

func (f *fakeFileRepo) GetByID(_ context.Context, id uuid.UUID) (*store.FileResource, error) {
	if file, ok := f.files[id]; ok {
		return &file, nil
	}
	return nil, store.ErrNotFound
}

func matchesTriple(file *store.FileResource, ownerID uuid.UUID, spaceID *uuid.UUID, policy store.AccessPolicy, fileName string) bool {
	if file.AccessPolicy != policy || file.FileName != fileName {
		return false
	}
	if spaceID != nil {
		return file.SpaceID != nil && *file.SpaceID == *spaceID
	}
	return file.SpaceID == nil && file.OwnerUserID == ownerID
}

func (f *fakeFileRepo) Find(_ context.Context, ownerID uuid.UUID, spaceID *uuid.UUID, policy store.AccessPolicy, fileName string) (*store.FileResource, error) {
	for id := range f.files {
		file := f.files[id]
		if matchesTriple(&file, ownerID, spaceID, policy, fileName) {
			return &file, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeFileRepo) ListByPolicy(_ context.Context, ownerID uuid.UUID, spaceID *uuid.UUID, policy store.AccessPolicy) ([]store.FileResource, error) {
	var out []store.FileResource
	for id := range f.files {
		file := f.files[id]
		if file.AccessPolicy != policy {
			continue
		}
		if spaceID != nil {
			if file.SpaceID != nil && *file.SpaceID == *spaceID {
				out = append(out, file)
			}
			continue
		}
		if file.SpaceID == nil && file.OwnerUserID == ownerID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) CountByHash(_ context.Context, hash string) (int, error) {
	n := 0
	for id := range f.files {
		if f.files[id].FileHash == hash {
			n++
		}
	}
	return n, nil
}

func (f *fakeFileRepo) Insert(_ context.Context, file store.FileResource) error {
	f.files[file.ID] = file
	return nil
}

func (f *fakeFileRepo) Update(_ context.Context, file store.FileResource) error {
	if _, ok := f.files[file.ID]; !ok {
		return store.ErrNotFound
	}
	f.files[file.ID] = file
	return nil
}

func (f *fakeFileRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.files[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

type fakeCalendarRepo struct {
	entries map[uuid.UUID]store.CalendarEntry
}

func newFakeCalendarRepo() *fakeCalendarRepo {
	return &fakeCalendarRepo{entries: make(map[uuid.UUID]store.CalendarEntry)}
}

func (f *fakeCalendarRepo) Get(_ context.Context, spaceID, id uuid.UUID) (*store.CalendarEntry, error) {
	if e, ok := f.entries[id]; ok && e.SpaceID == spaceID {
		return &e, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCalendarRepo) ListBySpace(_ context.Context, spaceID uuid.UUID) ([]store.CalendarEntry, error) {
	var out []store.CalendarEntry
	for id := range f.entries {
		if f.entries[id].SpaceID == spaceID {
			out = append(out, f.entries[id])
		}
	}
	return out, nil
}

func (f *fakeCalendarRepo) ListByIDs(_ context.Context, spaceID uuid.UUID, ids []uuid.UUID) ([]store.CalendarEntry, error) {
	var out []store.CalendarEntry
	for _, id := range ids {
		if e, ok := f.entries[id]; ok && e.SpaceID == spaceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCalendarRepo) MaxLastModified(_ context.Context, spaceID uuid.UUID) (time.Time, error) {
	var latest time.Time
	for id := range f.entries {
		if f.entries[id].SpaceID == spaceID && f.entries[id].LastModified.After(latest) {
			latest = f.entries[id].LastModified
		}
	}
	return latest, nil
}

func (f *fakeCalendarRepo) Insert(_ context.Context, e store.CalendarEntry) error {
	f.entries[e.ID] = roundTimestamps(e)
	return nil
}

func (f *fakeCalendarRepo) Update(_ context.Context, e store.CalendarEntry) error {
	if _, ok := f.entries[e.ID]; !ok {
		return store.ErrNotFound
	}
	f.entries[e.ID] = roundTimestamps(e)
	return nil
}

// roundTimestamps mimics the microsecond precision of timestamptz columns.
func roundTimestamps(e store.CalendarEntry) store.CalendarEntry {
	e.CreatedAt = e.CreatedAt.Truncate(time.Microsecond)
	e.LastModified = e.LastModified.Truncate(time.Microsecond)
	return e
}

func (f *fakeCalendarRepo) Delete(_ context.Context, spaceID, id uuid.UUID) error {
	if e, ok := f.entries[id]; ok && e.SpaceID == spaceID {
		delete(f.entries, id)
		return nil
	}
	return store.ErrNotFound
}

type fakeAppTokenRepo struct {
	tokens []store.AppToken
}

func (f *fakeAppTokenRepo) FindValidByUser(_ context.Context, userID uuid.UUID) ([]store.AppToken, error) {
	var out []store.AppToken
	now := time.Now()
	for _, t := range f.tokens {
		if t.UserID == userID && t.Valid(now) {
			out = append(out, t)
		}
	}
	return out, nil
}
