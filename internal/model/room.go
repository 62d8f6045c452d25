package model

// RoomStatus is the advertised availability of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomFull        RoomStatus = "full"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room represents a hostel room.
//
// Occupants is derived from the set of current, active allocations for the
// room; it is never read back from the remote store. Status is stored
// remotely but always rewritten from a fresh occupant count, so the ledger
// stays authoritative.
type Room struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Number    string     `gorm:"size:32" json:"number"`
	Block     string     `gorm:"size:32" json:"block"`
	Floor     int        `json:"floor"`
	Capacity  int        `json:"capacity"`
	Type      string     `gorm:"size:32" json:"type"`
	Price     float64    `json:"price"`
	Status    RoomStatus `gorm:"size:16" json:"status"`
	Amenities []string   `gorm:"serializer:json" json:"features"`
	Occupants []string   `gorm:"serializer:json" json:"-"`
}
