package allocation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hostel-sync-backend/internal/cache"
	"hostel-sync-backend/internal/gateway"
	"hostel-sync-backend/internal/model"
)

// Business-rule violations surfaced to the caller. Remote failures are
// returned as the gateway's *RemoteError wrapped with step context.
var (
	ErrRoomUnavailable = errors.New("room does not exist or is under maintenance")
	ErrRoomFull        = errors.New("room is already full")
	ErrNotAllocated    = errors.New("student has no current allocation for this room")
)

// Gateway is the slice of the remote data gateway the coordinator consumes.
type Gateway interface {
	FetchAllocations(ctx context.Context, f gateway.AllocationFilter) ([]model.RoomAllocation, error)
	InsertAllocation(ctx context.Context, profileID, roomID, startDate string) error
	EndAllocation(ctx context.Context, profileID, roomID, endDate string) error
	EndCurrentAllocations(ctx context.Context, profileID, endDate string) error
	UpdateRoomStatus(ctx context.Context, roomID string, status model.RoomStatus) error
	DeleteProfile(ctx context.Context, id string) error
}

// Refresher re-derives cache collections after a write.
type Refresher interface {
	RefreshRooms(ctx context.Context) error
	RefreshProfiles(ctx context.Context) error
}

// Coordinator enforces the room-capacity and single-current-allocation
// invariants across two remote tables the backend cannot update atomically.
// The steps of each operation are not atomic with respect to each other or
// to concurrent clients; correctness rests on every status write recomputing
// the occupant count from a fresh ledger read instead of trusting a counter,
// and on each step being idempotent so a failed run can simply be re-run.
type Coordinator struct {
	gw        Gateway
	cache     *cache.Store
	refresher Refresher
	now       func() time.Time
}

// NewCoordinator creates an allocation coordinator.
func NewCoordinator(gw Gateway, store *cache.Store, refresher Refresher) *Coordinator {
	return &Coordinator{gw: gw, cache: store, refresher: refresher, now: time.Now}
}

func (c *Coordinator) today() string {
	return c.now().UTC().Format(gateway.DateLayout)
}

// AllocateRoom moves a student into a room. If the student currently holds
// another room, that allocation is completed first. Preconditions are
// optimistic checks against the cache snapshot; a concurrent allocation can
// still slip past them, which the recomputed status write absorbs.
func (c *Coordinator) AllocateRoom(ctx context.Context, studentID, roomID string) error {
	room, ok := c.cache.RoomByID(roomID)
	if !ok || room.Status == model.RoomMaintenance {
		return fmt.Errorf("room %s: %w", roomID, ErrRoomUnavailable)
	}
	if len(room.Occupants) >= room.Capacity {
		return fmt.Errorf("room %s: %w", roomID, ErrRoomFull)
	}

	today := c.today()

	existing, err := c.gw.FetchAllocations(ctx, gateway.AllocationFilter{
		ProfileID:   studentID,
		CurrentOnly: true,
	})
	if err != nil {
		return fmt.Errorf("check current allocation: %w", err)
	}
	if len(existing) > 0 {
		if err := c.gw.EndCurrentAllocations(ctx, studentID, today); err != nil {
			return fmt.Errorf("end current allocation: %w", err)
		}
	}

	if err := c.gw.InsertAllocation(ctx, studentID, roomID, today); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}

	if _, err := c.RecomputeRoomStatus(ctx, roomID, room.Capacity); err != nil {
		return err
	}

	return c.refresh(ctx)
}

// DeallocateRoom ends a student's current allocation to a room. It fails
// without any remote write when no such allocation exists.
func (c *Coordinator) DeallocateRoom(ctx context.Context, studentID, roomID string) error {
	current, err := c.gw.FetchAllocations(ctx, gateway.AllocationFilter{
		ProfileID:   studentID,
		RoomID:      roomID,
		CurrentOnly: true,
		Status:      model.AllocationActive,
	})
	if err != nil {
		return fmt.Errorf("check current allocation: %w", err)
	}
	if len(current) == 0 {
		return fmt.Errorf("student %s, room %s: %w", studentID, roomID, ErrNotAllocated)
	}

	if err := c.gw.EndAllocation(ctx, studentID, roomID, c.today()); err != nil {
		return fmt.Errorf("end allocation: %w", err)
	}

	// Never a blind "set to available": other occupants may remain.
	// Maintenance is operator-set, not derived from the ledger, so it is
	// left untouched.
	if room, ok := c.cache.RoomByID(roomID); ok {
		if room.Status != model.RoomMaintenance {
			if _, err := c.RecomputeRoomStatus(ctx, roomID, room.Capacity); err != nil {
				return err
			}
		}
	} else {
		log.Printf("Warning: room %s missing from cache, skipping status recompute", roomID)
	}

	return c.refresh(ctx)
}

// RemoveStudent deletes a student profile, completing any current allocation
// first so the ledger and room status stay consistent.
func (c *Coordinator) RemoveStudent(ctx context.Context, studentID string) error {
	if profile, ok := c.cache.ProfileByID(studentID); ok && profile.RoomID != "" {
		if err := c.DeallocateRoom(ctx, studentID, profile.RoomID); err != nil && !errors.Is(err, ErrNotAllocated) {
			return err
		}
	}

	if err := c.gw.DeleteProfile(ctx, studentID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if err := c.refresher.RefreshProfiles(ctx); err != nil {
		return fmt.Errorf("refresh profiles: %w", err)
	}
	return nil
}

// RecomputeRoomStatus counts the room's current, active allocations in the
// ledger and writes the resulting status. The recomputation, not an
// increment, is the correctness mechanism: even when allocation steps race
// with another client the write reflects a fresh count. Running it twice
// with no intervening change stores the same status both times.
func (c *Coordinator) RecomputeRoomStatus(ctx context.Context, roomID string, capacity int) (model.RoomStatus, error) {
	occupants, err := c.gw.FetchAllocations(ctx, gateway.AllocationFilter{
		RoomID:      roomID,
		CurrentOnly: true,
		Status:      model.AllocationActive,
	})
	if err != nil {
		return "", fmt.Errorf("count room occupants: %w", err)
	}

	status := model.RoomAvailable
	if len(occupants) >= capacity {
		status = model.RoomFull
	}
	if err := c.gw.UpdateRoomStatus(ctx, roomID, status); err != nil {
		return "", fmt.Errorf("write room status: %w", err)
	}
	return status, nil
}

// refresh forces consumers onto the authoritative post-write state rather
// than trusting local deltas.
func (c *Coordinator) refresh(ctx context.Context) error {
	if err := c.refresher.RefreshRooms(ctx); err != nil {
		return fmt.Errorf("refresh rooms: %w", err)
	}
	if err := c.refresher.RefreshProfiles(ctx); err != nil {
		return fmt.Errorf("refresh profiles: %w", err)
	}
	return nil
}
