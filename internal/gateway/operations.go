package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"hostel-sync-backend/internal/model"
)

// DateLayout is the wire format for the date-only columns of the remote store.
const DateLayout = "2006-01-02"

// AllocationFilter narrows an allocation ledger select. Zero fields are
// omitted from the query.
type AllocationFilter struct {
	ProfileID   string
	RoomID      string
	CurrentOnly bool
	Status      model.AllocationStatus
}

func (f AllocationFilter) params() url.Values {
	params := url.Values{"select": {"*"}}
	if f.ProfileID != "" {
		params.Set("profile_id", "eq."+f.ProfileID)
	}
	if f.RoomID != "" {
		params.Set("room_id", "eq."+f.RoomID)
	}
	if f.CurrentOnly {
		params.Set("is_current", "eq.true")
	}
	if f.Status != "" {
		params.Set("status", "eq."+string(f.Status))
	}
	return params
}

// RequestFilter narrows a service-request select.
type RequestFilter struct {
	ID        string
	ProfileID string
}

// FetchProfiles returns every profile row (students and admins).
func (c *Client) FetchProfiles(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	err := c.selectRows(ctx, "fetch profiles", "profiles", url.Values{"select": {"*"}}, &profiles)
	return profiles, err
}

// FetchRooms returns every room row. Occupant derivation is the syncer's job.
func (c *Client) FetchRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := c.selectRows(ctx, "fetch rooms", "rooms", url.Values{"select": {"*"}}, &rooms)
	return rooms, err
}

// FetchAllocations returns allocation ledger rows matching the filter.
func (c *Client) FetchAllocations(ctx context.Context, f AllocationFilter) ([]model.RoomAllocation, error) {
	var allocations []model.RoomAllocation
	err := c.selectRows(ctx, "fetch room allocations", "room_allocations", f.params(), &allocations)
	return allocations, err
}

// FetchNotices returns all notices, newest first.
func (c *Client) FetchNotices(ctx context.Context) ([]model.Notice, error) {
	params := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	var notices []model.Notice
	err := c.selectRows(ctx, "fetch notices", "notices", params, &notices)
	return notices, err
}

// FetchServiceRequests returns service requests matching the filter, newest
// first.
func (c *Client) FetchServiceRequests(ctx context.Context, f RequestFilter) ([]model.ServiceRequest, error) {
	params := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	if f.ID != "" {
		params.Set("id", "eq."+f.ID)
	}
	if f.ProfileID != "" {
		params.Set("profile_id", "eq."+f.ProfileID)
	}
	var requests []model.ServiceRequest
	err := c.selectRows(ctx, "fetch service requests", "service_requests", params, &requests)
	return requests, err
}

// FetchHostelRules returns the active house rules.
func (c *Client) FetchHostelRules(ctx context.Context) ([]model.HostelRule, error) {
	params := url.Values{"select": {"*"}, "is_active": {"eq.true"}, "order": {"created_at.desc"}}
	var rules []model.HostelRule
	err := c.selectRows(ctx, "fetch hostel rules", "hostel_rules", params, &rules)
	return rules, err
}

// FetchPayments returns the payment history for one profile, newest first.
func (c *Client) FetchPayments(ctx context.Context, profileID string) ([]model.Payment, error) {
	params := url.Values{
		"select":     {"*"},
		"profile_id": {"eq." + profileID},
		"order":      {"payment_date.desc"},
	}
	var payments []model.Payment
	err := c.selectRows(ctx, "fetch payments", "payments", params, &payments)
	return payments, err
}

// InsertAllocation creates a new current, active ledger row.
func (c *Client) InsertAllocation(ctx context.Context, profileID, roomID, startDate string) error {
	row := map[string]any{
		"id":         uuid.NewString(),
		"profile_id": profileID,
		"room_id":    roomID,
		"start_date": startDate,
		"status":     model.AllocationActive,
		"is_current": true,
	}
	return c.writeRows(ctx, "insert allocation", http.MethodPost, "room_allocations", nil, row)
}

// EndAllocation completes the current allocation of a profile to a specific
// room. Ending an already-ended allocation matches no rows and is a no-op.
func (c *Client) EndAllocation(ctx context.Context, profileID, roomID, endDate string) error {
	params := url.Values{
		"profile_id": {"eq." + profileID},
		"room_id":    {"eq." + roomID},
		"is_current": {"eq.true"},
	}
	return c.writeRows(ctx, "end allocation", http.MethodPatch, "room_allocations", params, endPatch(endDate))
}

// EndCurrentAllocations completes whatever current allocation a profile
// holds, regardless of room.
func (c *Client) EndCurrentAllocations(ctx context.Context, profileID, endDate string) error {
	params := url.Values{
		"profile_id": {"eq." + profileID},
		"is_current": {"eq.true"},
	}
	return c.writeRows(ctx, "end current allocations", http.MethodPatch, "room_allocations", params, endPatch(endDate))
}

func endPatch(endDate string) map[string]any {
	return map[string]any{
		"is_current": false,
		"status":     model.AllocationCompleted,
		"end_date":   endDate,
	}
}

// UpdateRoomStatus writes a freshly recomputed status for a room.
func (c *Client) UpdateRoomStatus(ctx context.Context, roomID string, status model.RoomStatus) error {
	params := url.Values{"id": {"eq." + roomID}}
	return c.writeRows(ctx, "update room status", http.MethodPatch, "rooms", params, map[string]any{"status": status})
}

// InsertServiceRequest creates a new service request row.
func (c *Client) InsertServiceRequest(ctx context.Context, req model.ServiceRequest) error {
	row := map[string]any{
		"id":          req.ID,
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"priority":    req.Priority,
		"status":      req.Status,
		"profile_id":  req.ProfileID,
		"room_id":     req.RoomID,
	}
	return c.writeRows(ctx, "insert service request", http.MethodPost, "service_requests", nil, row)
}

// UpdateServiceRequest applies a partial update to a service request.
func (c *Client) UpdateServiceRequest(ctx context.Context, id string, patch map[string]any) error {
	params := url.Values{"id": {"eq." + id}}
	return c.writeRows(ctx, "update service request", http.MethodPatch, "service_requests", params, patch)
}

// CreateProfile inserts a new profile row.
func (c *Client) CreateProfile(ctx context.Context, p model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"email":            p.Email,
		"role":             p.Role,
		"admission_number": p.AdmissionNumber,
		"department":       p.Department,
		"year_of_study":    p.YearOfStudy,
		"payment_status":   p.PaymentStatus,
		"phone":            p.Phone,
		"address":          p.Address,
	}
	return c.writeRows(ctx, "create profile", http.MethodPost, "profiles", nil, row)
}

// UpdateProfile applies a partial update to a profile row. Role is immutable,
// so callers must never include it in the patch.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch map[string]any) error {
	params := url.Values{"id": {"eq." + id}}
	return c.writeRows(ctx, "update profile", http.MethodPatch, "profiles", params, patch)
}

// DeleteProfile removes a profile row.
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	params := url.Values{"id": {"eq." + id}}
	return c.writeRows(ctx, "delete profile", http.MethodDelete, "profiles", params, nil)
}
