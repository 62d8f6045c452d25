package model

// HostelRule is a published house rule. Read-only in this client.
type HostelRule struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	Title       string `gorm:"size:256" json:"title"`
	Description string `gorm:"size:2048" json:"description"`
	Category    string `gorm:"size:64" json:"category"`
	IsActive    bool   `json:"is_active"`
}
