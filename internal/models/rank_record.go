package models

import "time"

// RankRecord remembers the last tier a rank-up notification was sent for,
// so a crossing is announced once and not once per point.
type RankRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    int64     `gorm:"not null;uniqueIndex:idx_rank_chat_user" json:"chat_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_rank_chat_user" json:"user_id"`
	Tier      string    `gorm:"size:16;not null" json:"tier"`
	UpdatedAt time.Time `json:"updated_at"`
}
