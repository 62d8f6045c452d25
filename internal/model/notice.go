package model

import "time"

// Notice is an announcement published to residents. Read-only in this client.
type Notice struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Title      string    `gorm:"size:256" json:"title"`
	Content    string    `gorm:"size:4096" json:"content"`
	Priority   Priority  `gorm:"size:16" json:"priority"`
	AuthorName string    `gorm:"size:256" json:"author_name"`
	Tags       []string  `gorm:"serializer:json" json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}
