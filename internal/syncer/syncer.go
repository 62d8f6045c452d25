package syncer

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"hostel-sync-backend/internal/cache"
	"hostel-sync-backend/internal/gateway"
	"hostel-sync-backend/internal/model"
)

// Gateway is the slice of the remote data gateway the syncer consumes.
type Gateway interface {
	FetchProfiles(ctx context.Context) ([]model.Profile, error)
	FetchRooms(ctx context.Context) ([]model.Room, error)
	FetchAllocations(ctx context.Context, f gateway.AllocationFilter) ([]model.RoomAllocation, error)
	FetchNotices(ctx context.Context) ([]model.Notice, error)
	FetchServiceRequests(ctx context.Context, f gateway.RequestFilter) ([]model.ServiceRequest, error)
	FetchHostelRules(ctx context.Context) ([]model.HostelRule, error)
}

// Snapshotter persists accepted snapshots for offline warm starts.
type Snapshotter interface {
	ReplaceProfiles(ctx context.Context, profiles []model.Profile) error
	ReplaceRooms(ctx context.Context, rooms []model.Room) error
	ReplaceNotices(ctx context.Context, notices []model.Notice) error
	ReplaceServiceRequests(ctx context.Context, requests []model.ServiceRequest) error
	ReplaceHostelRules(ctx context.Context, rules []model.HostelRule) error
	LoadProfiles(ctx context.Context) ([]model.Profile, error)
	LoadRooms(ctx context.Context) ([]model.Room, error)
	LoadNotices(ctx context.Context) ([]model.Notice, error)
	LoadServiceRequests(ctx context.Context) ([]model.ServiceRequest, error)
	LoadHostelRules(ctx context.Context) ([]model.HostelRule, error)
}

// Notifier receives events derived from snapshot diffs.
type Notifier interface {
	RoomAvailable(roomID string)
	NoticePublished(noticeID string)
}

// Syncer rebuilds cache collections from the gateway. Every refresh fetches
// the whole collection, derives the dependent fields from the allocation
// ledger and replaces the cache snapshot under a fresh generation. The
// generation is taken before the fetch, so of two racing refreshes only the
// later-issued one lands.
type Syncer struct {
	gw     Gateway
	cache  *cache.Store
	snap   Snapshotter // optional
	notify Notifier    // optional

	gens map[cache.Collection]*atomic.Uint64
}

// New creates a syncer. snap and notify may be nil.
func New(gw Gateway, store *cache.Store, snap Snapshotter, notify Notifier) *Syncer {
	gens := make(map[cache.Collection]*atomic.Uint64)
	for _, col := range []cache.Collection{
		cache.Profiles, cache.Rooms, cache.Notices, cache.ServiceRequests, cache.HostelRules,
	} {
		gens[col] = &atomic.Uint64{}
	}
	return &Syncer{gw: gw, cache: store, snap: snap, notify: notify, gens: gens}
}

func (s *Syncer) nextGen(col cache.Collection) uint64 {
	return s.gens[col].Add(1)
}

// currentLedger fetches the current, active slice of the allocation ledger.
func (s *Syncer) currentLedger(ctx context.Context) ([]model.RoomAllocation, error) {
	return s.gw.FetchAllocations(ctx, gateway.AllocationFilter{
		CurrentOnly: true,
		Status:      model.AllocationActive,
	})
}

// RefreshRooms rebuilds the room collection. Occupants are derived from the
// ledger, never trusted from the stored room rows. Rooms that were not
// available in the previous snapshot and are now dispatch a push event.
func (s *Syncer) RefreshRooms(ctx context.Context) error {
	gen := s.nextGen(cache.Rooms)

	rooms, err := s.gw.FetchRooms(ctx)
	if err != nil {
		return err
	}
	ledger, err := s.currentLedger(ctx)
	if err != nil {
		return err
	}

	occupants := make(map[string][]string)
	for _, a := range ledger {
		occupants[a.RoomID] = append(occupants[a.RoomID], a.ProfileID)
	}
	for i := range rooms {
		rooms[i].Occupants = occupants[rooms[i].ID]
	}

	prev := s.cache.RoomList()
	hadSnapshot := s.cache.Generation(cache.Rooms) > 0
	if !s.cache.Replace(cache.Rooms, gen, rooms) {
		log.Printf("rooms refresh generation %d superseded, discarding", gen)
		return nil
	}
	s.persist(ctx, "rooms", func() error { return s.snap.ReplaceRooms(ctx, rooms) })

	if s.notify != nil && hadSnapshot {
		prevStatus := make(map[string]model.RoomStatus, len(prev))
		for _, r := range prev {
			prevStatus[r.ID] = r.Status
		}
		for _, r := range rooms {
			old, known := prevStatus[r.ID]
			if known && old != model.RoomAvailable && r.Status == model.RoomAvailable {
				s.notify.RoomAvailable(r.ID)
			}
		}
	}
	return nil
}

// RefreshProfiles rebuilds the profile collection, filling in the derived
// room reference from the ledger.
func (s *Syncer) RefreshProfiles(ctx context.Context) error {
	gen := s.nextGen(cache.Profiles)

	profiles, err := s.gw.FetchProfiles(ctx)
	if err != nil {
		return err
	}
	ledger, err := s.currentLedger(ctx)
	if err != nil {
		return err
	}

	roomOf := make(map[string]string, len(ledger))
	for _, a := range ledger {
		roomOf[a.ProfileID] = a.RoomID
	}
	for i := range profiles {
		profiles[i].RoomID = roomOf[profiles[i].ID]
	}

	if !s.cache.Replace(cache.Profiles, gen, profiles) {
		log.Printf("profiles refresh generation %d superseded, discarding", gen)
		return nil
	}
	s.persist(ctx, "profiles", func() error { return s.snap.ReplaceProfiles(ctx, profiles) })
	return nil
}

// RefreshNotices rebuilds the notice collection and dispatches a push event
// for every notice not present in the previous snapshot.
func (s *Syncer) RefreshNotices(ctx context.Context) error {
	gen := s.nextGen(cache.Notices)

	notices, err := s.gw.FetchNotices(ctx)
	if err != nil {
		return err
	}

	prev := s.cache.NoticeList()
	hadSnapshot := s.cache.Generation(cache.Notices) > 0
	if !s.cache.Replace(cache.Notices, gen, notices) {
		log.Printf("notices refresh generation %d superseded, discarding", gen)
		return nil
	}
	s.persist(ctx, "notices", func() error { return s.snap.ReplaceNotices(ctx, notices) })

	if s.notify != nil && hadSnapshot {
		seen := make(map[string]struct{}, len(prev))
		for _, n := range prev {
			seen[n.ID] = struct{}{}
		}
		for _, n := range notices {
			if _, ok := seen[n.ID]; !ok {
				s.notify.NoticePublished(n.ID)
			}
		}
	}
	return nil
}

// RefreshServiceRequests rebuilds the service-request collection.
func (s *Syncer) RefreshServiceRequests(ctx context.Context) error {
	gen := s.nextGen(cache.ServiceRequests)

	requests, err := s.gw.FetchServiceRequests(ctx, gateway.RequestFilter{})
	if err != nil {
		return err
	}
	if !s.cache.Replace(cache.ServiceRequests, gen, requests) {
		log.Printf("service_requests refresh generation %d superseded, discarding", gen)
		return nil
	}
	s.persist(ctx, "service_requests", func() error { return s.snap.ReplaceServiceRequests(ctx, requests) })
	return nil
}

// RefreshHostelRules rebuilds the hostel-rule collection.
func (s *Syncer) RefreshHostelRules(ctx context.Context) error {
	gen := s.nextGen(cache.HostelRules)

	rules, err := s.gw.FetchHostelRules(ctx)
	if err != nil {
		return err
	}
	if !s.cache.Replace(cache.HostelRules, gen, rules) {
		log.Printf("hostel_rules refresh generation %d superseded, discarding", gen)
		return nil
	}
	s.persist(ctx, "hostel_rules", func() error { return s.snap.ReplaceHostelRules(ctx, rules) })
	return nil
}

// RefreshAll rebuilds every collection. Failures are joined so one broken
// table does not stop the others from refreshing.
func (s *Syncer) RefreshAll(ctx context.Context) error {
	return errors.Join(
		s.RefreshProfiles(ctx),
		s.RefreshRooms(ctx),
		s.RefreshNotices(ctx),
		s.RefreshServiceRequests(ctx),
		s.RefreshHostelRules(ctx),
	)
}

// Prime loads the persisted snapshots into the cache so reads work before
// the first remote fetch. Collections already refreshed are left alone.
func (s *Syncer) Prime(ctx context.Context) {
	if s.snap == nil {
		return
	}
	prime := func(col cache.Collection, load func() (any, int, error)) {
		if s.cache.Generation(col) > 0 {
			return
		}
		items, n, err := load()
		if err != nil {
			log.Printf("Warning: could not prime %s from snapshot: %v", col, err)
			return
		}
		if n == 0 {
			return
		}
		s.cache.Replace(col, s.nextGen(col), items)
	}

	prime(cache.Profiles, func() (any, int, error) {
		v, err := s.snap.LoadProfiles(ctx)
		return v, len(v), err
	})
	prime(cache.Rooms, func() (any, int, error) {
		v, err := s.snap.LoadRooms(ctx)
		return v, len(v), err
	})
	prime(cache.Notices, func() (any, int, error) {
		v, err := s.snap.LoadNotices(ctx)
		return v, len(v), err
	})
	prime(cache.ServiceRequests, func() (any, int, error) {
		v, err := s.snap.LoadServiceRequests(ctx)
		return v, len(v), err
	})
	prime(cache.HostelRules, func() (any, int, error) {
		v, err := s.snap.LoadHostelRules(ctx)
		return v, len(v), err
	})
}

func (s *Syncer) persist(ctx context.Context, name string, save func() error) {
	if s.snap == nil {
		return
	}
	if err := save(); err != nil {
		log.Printf("Warning: could not persist %s snapshot: %v", name, err)
	}
}
