package cache

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"hostel-sync-backend/internal/model"
)

// Collection names the entity collections mirrored from the remote store.
type Collection string

const (
	Profiles        Collection = "profiles"
	Rooms           Collection = "rooms"
	Notices         Collection = "notices"
	ServiceRequests Collection = "service_requests"
	HostelRules     Collection = "hostel_rules"
)

type snapshot struct {
	gen   uint64
	items any
}

// Store holds the last-fetched snapshot of each collection. Snapshots are
// replaced wholesale, never patched, so a reader can never observe a mix of
// two fetch cycles for the same collection. Each snapshot carries the fetch
// generation it was requested under; a replace with an older generation is
// rejected, which keeps a slow, superseded fetch from clobbering fresher data.
type Store struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// New creates an empty entity cache.
func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, 0)}
}

// Replace installs a new snapshot for the collection and reports whether it
// was accepted. Snapshots older than the one already installed are discarded.
func (s *Store) Replace(col Collection, gen uint64, items any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, found := s.c.Get(string(col)); found {
		if existing.(snapshot).gen >= gen {
			return false
		}
	}
	s.c.Set(string(col), snapshot{gen: gen, items: items}, gocache.NoExpiration)
	return true
}

// Generation returns the fetch generation of the installed snapshot, or zero
// when the collection has never been loaded.
func (s *Store) Generation(col Collection) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, found := s.c.Get(string(col)); found {
		return existing.(snapshot).gen
	}
	return 0
}

func items[T any](s *Store, col Collection) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, found := s.c.Get(string(col))
	if !found {
		return nil
	}
	stored, ok := existing.(snapshot).items.([]T)
	if !ok {
		return nil
	}
	// Copy the slice header contents so consumers cannot reorder the snapshot.
	out := make([]T, len(stored))
	copy(out, stored)
	return out
}

// ProfileList returns the current profile snapshot.
func (s *Store) ProfileList() []model.Profile {
	return items[model.Profile](s, Profiles)
}

// RoomList returns the current room snapshot with derived occupants.
func (s *Store) RoomList() []model.Room {
	return items[model.Room](s, Rooms)
}

// NoticeList returns the current notice snapshot.
func (s *Store) NoticeList() []model.Notice {
	return items[model.Notice](s, Notices)
}

// RequestList returns the current service-request snapshot.
func (s *Store) RequestList() []model.ServiceRequest {
	return items[model.ServiceRequest](s, ServiceRequests)
}

// RuleList returns the current hostel-rule snapshot.
func (s *Store) RuleList() []model.HostelRule {
	return items[model.HostelRule](s, HostelRules)
}

// RoomByID looks a room up in the current snapshot.
func (s *Store) RoomByID(id string) (model.Room, bool) {
	for _, r := range s.RoomList() {
		if r.ID == id {
			return r, true
		}
	}
	return model.Room{}, false
}

// ProfileByID looks a profile up in the current snapshot.
func (s *Store) ProfileByID(id string) (model.Profile, bool) {
	for _, p := range s.ProfileList() {
		if p.ID == id {
			return p, true
		}
	}
	return model.Profile{}, false
}
