package models

import "time"

// LedgerEntry is one user's point balance inside one chat.
// Scores are local to a chat, there is no global balance.
type LedgerEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChatID      int64     `gorm:"not null;uniqueIndex:idx_chat_user" json:"chat_id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_chat_user" json:"user_id"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	Points      int       `gorm:"not null;default:0" json:"points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
