package model

import "time"

// RequestStatus is the workflow state of a service request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in-progress"
	RequestResolved   RequestStatus = "resolved"
	RequestRejected   RequestStatus = "rejected"
)

// ValidRequestStatus reports whether s is a known workflow state.
func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestPending, RequestInProgress, RequestResolved, RequestRejected:
		return true
	}
	return false
}

// Priority grades notices and service requests.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Comment is an append-only annotation on a service request.
type Comment struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
	Date     string `json:"date"`
}

// ServiceRequest is a maintenance/cleaning/security ticket raised by a
// student for a room. Comments are stored as a JSON list alongside the row;
// updates must concatenate onto the existing list, never replace it blindly.
type ServiceRequest struct {
	ID          string        `gorm:"primaryKey;size:64" json:"id"`
	Title       string        `gorm:"size:256" json:"title"`
	Description string        `gorm:"size:2048" json:"description"`
	Category    string        `gorm:"size:32" json:"category"`
	Priority    Priority      `gorm:"size:16" json:"priority"`
	Status      RequestStatus `gorm:"size:16" json:"status"`
	ProfileID   string        `gorm:"index;size:64" json:"profile_id"`
	RoomID      string        `gorm:"size:64" json:"room_id"`
	CreatedAt   time.Time     `json:"created_at"`
	Comments    []Comment     `gorm:"serializer:json" json:"comments"`
}
