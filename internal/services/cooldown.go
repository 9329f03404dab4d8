package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/t03ya/ratingMKC/internal/models"

	"gorm.io/gorm"
)

// CooldownService gates how often one user may thank in one chat.
// With a zero window every request is allowed, but the timestamp is still
// recorded, so re-enabling the limit is purely a configuration change.
type CooldownService struct {
	db     *gorm.DB
	window time.Duration

	mu sync.Mutex
}

func NewCooldownService(db *gorm.DB, window time.Duration) *CooldownService {
	return &CooldownService{db: db, window: window}
}

// TryConsume is an atomic check-and-set: it reads the last accepted thank
// for (chat, user), and only if the window has passed writes now as the new
// timestamp. Two concurrent thanks cannot both pass the check.
func (s *CooldownService) TryConsume(chatID, userID int64, now time.Time) (allowed bool, wait time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec models.ThankRecord
	readErr := s.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&rec).Error
	found := readErr == nil
	if readErr != nil && !errors.Is(readErr, gorm.ErrRecordNotFound) {
		return false, 0, fmt.Errorf("cooldown read: %w", readErr)
	}

	if found && s.window > 0 {
		elapsed := now.Sub(rec.LastThankAt)
		if elapsed < s.window {
			return false, s.window - elapsed, nil
		}
	}

	rec.ChatID = chatID
	rec.UserID = userID
	rec.LastThankAt = now

	var writeErr error
	if found {
		writeErr = s.db.Save(&rec).Error
	} else {
		writeErr = s.db.Create(&rec).Error
	}
	if writeErr != nil {
		return false, 0, fmt.Errorf("cooldown write: %w", writeErr)
	}

	return true, 0, nil
}

// Window reports the configured cooldown window.
func (s *CooldownService) Window() time.Duration {
	return s.window
}
