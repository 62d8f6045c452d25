package model

// AllocationStatus is the lifecycle state of a single allocation record.
type AllocationStatus string

const (
	AllocationActive    AllocationStatus = "active"
	AllocationCompleted AllocationStatus = "completed"
)

// RoomAllocation links a profile to a room for a validity window. The set of
// these records is the allocation ledger; room occupancy is always recomputed
// from it. For a given profile at most one record has IsCurrent set.
//
// Dates travel as date-only strings (YYYY-MM-DD), matching the remote columns.
type RoomAllocation struct {
	ID        string           `json:"id"`
	ProfileID string           `json:"profile_id"`
	RoomID    string           `json:"room_id"`
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Status    AllocationStatus `json:"status"`
	IsCurrent bool             `json:"is_current"`
}
