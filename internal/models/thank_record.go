package models

import "time"

// ThankRecord is the per-chat, per-user timestamp of the last accepted
// thank event. Written at acceptance time, before the event is processed.
type ThankRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ChatID      int64     `gorm:"not null;uniqueIndex:idx_thank_chat_user" json:"chat_id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_thank_chat_user" json:"user_id"`
	LastThankAt time.Time `gorm:"not null" json:"last_thank_at"`
}
