package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/t03ya/ratingMKC/internal/models"

	"gorm.io/gorm"
)

// keyedMutex hands out one mutex per (chat, user) pair so mutations on the
// same key serialize while different keys proceed independently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(chatID, userID int64) *sync.Mutex {
	key := fmt.Sprintf("%d:%d", chatID, userID)

	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// LedgerService owns all reads and writes of per-chat point balances.
type LedgerService struct {
	db    *gorm.DB
	locks *keyedMutex
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db, locks: newKeyedMutex()}
}

// Get returns the entry for (chat, user), or nil when the user has never
// been credited in this chat. Absence is not an error.
func (s *LedgerService) Get(chatID, userID int64) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	return &entry, nil
}

// Upsert applies fn to the current entry for (chat, user) as one atomic
// unit. fn receives the prior entry (a zero-valued one on first touch) and
// returns the next. Points are clamped at zero. The prior state is always
// re-read from storage under the key lock, so a reported write failure
// leaves the stored entry intact and nothing in memory diverges from disk.
func (s *LedgerService) Upsert(chatID, userID int64, fn func(prior models.LedgerEntry) models.LedgerEntry) (*models.LedgerEntry, error) {
	lock := s.locks.get(chatID, userID)
	lock.Lock()
	defer lock.Unlock()

	var prior models.LedgerEntry
	err := s.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&prior).Error
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	if !exists {
		prior = models.LedgerEntry{ChatID: chatID, UserID: userID}
	}

	next := fn(prior)
	next.ID = prior.ID
	next.ChatID = chatID
	next.UserID = userID
	next.CreatedAt = prior.CreatedAt
	if next.Points < 0 {
		next.Points = 0
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if exists {
			return tx.Save(&next).Error
		}
		return tx.Create(&next).Error
	})
	if err != nil {
		return nil, fmt.Errorf("ledger write: %w", err)
	}

	return &next, nil
}

// Top returns the n highest balances in a chat, points descending.
func (s *LedgerService) Top(chatID int64, n int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.Where("chat_id = ?", chatID).
		Order("points DESC").
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("ledger top: %w", err)
	}
	return entries, nil
}

// All returns every entry known for a chat, for a full title resync.
func (s *LedgerService) All(chatID int64) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.Where("chat_id = ?", chatID).Order("points DESC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("ledger all: %w", err)
	}
	return entries, nil
}

// Count reports how many users have an entry in a chat.
func (s *LedgerService) Count(chatID int64) (int64, error) {
	var n int64
	err := s.db.Model(&models.LedgerEntry{}).Where("chat_id = ?", chatID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("ledger count: %w", err)
	}
	return n, nil
}
