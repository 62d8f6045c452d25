package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Subscriptions live only in the local snapshot database; the remote store
// knows nothing about them.
type PushSubscription struct {
	Endpoint      string    `gorm:"primaryKey"`
	P256DH        string    `gorm:"column:p256dh;not null"`
	Auth          string    `gorm:"not null"`
	NotifyNotices bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`

	// Associations
	Rooms []*Room `gorm:"many2many:subscription_room_mapping;"`
}
