package model

// Role classifies a profile. It is immutable after creation.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// PaymentStatus summarizes a student's fee standing.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentOverdue PaymentStatus = "overdue"
)

// Profile represents a student or admin account in the remote store.
//
// RoomID is a derived field: the remote profiles table does not carry it, the
// syncer fills it in from the current allocation ledger on every refresh.
type Profile struct {
	ID              string        `gorm:"primaryKey;size:64" json:"id"`
	Name            string        `gorm:"size:256" json:"name"`
	Email           string        `gorm:"size:256" json:"email"`
	Role            Role          `gorm:"size:16" json:"role"`
	AdmissionNumber string        `gorm:"size:64" json:"admission_number"`
	Department      string        `gorm:"size:128" json:"department"`
	YearOfStudy     int           `json:"year_of_study"`
	PaymentStatus   PaymentStatus `gorm:"size:16" json:"payment_status"`
	Phone           string        `gorm:"size:32" json:"phone"`
	Address         string        `gorm:"size:512" json:"address"`
	ProfilePic      string        `gorm:"size:512" json:"profile_pic"`
	RoomID          string        `gorm:"size:64" json:"room_id"`
}
