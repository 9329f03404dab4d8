package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/t03ya/ratingMKC/internal/models"
	"github.com/t03ya/ratingMKC/internal/rank"

	"gorm.io/gorm"
)

// Event sources. Thank and reaction events reject self-crediting; explicit
// commands trust the sender's intent.
const (
	SourceCommand  = "command"
	SourceThank    = "thank"
	SourceReaction = "reaction"
	SourceOperator = "operator"
)

var (
	ErrSelfCredit    = errors.New("cannot credit yourself")
	ErrDeltaTooLarge = errors.New("delta exceeds the per-operation cap")
	ErrBadTarget     = errors.New("event has no valid target")
)

type Event struct {
	ChatID     int64
	ActorID    int64
	TargetID   int64
	TargetName string
	Delta      int
	Reason     string
	Source     string
}

type ApplyResult struct {
	OldPoints   int
	NewPoints   int
	OldTier     rank.Tier
	NewTier     rank.Tier
	TierChanged bool
	TitleSynced bool
	IsOwner     bool
	SyncErr     error
}

// SyncResult is what a title sync attempt produced. Err is informational:
// a failed sync never invalidates the ledger mutation it followed.
type SyncResult struct {
	Synced  bool
	IsOwner bool
	Err     error
}

// TitleSyncer reconciles the chat platform's visible title with a balance.
type TitleSyncer interface {
	Sync(chatID, userID int64, points int) SyncResult
}

// FailureReporter forwards title-sync failures to whoever operates the bot.
type FailureReporter interface {
	ReportSyncFailure(chatID, userID int64, reason error)
}

// EventService runs one qualifying trigger through the full pipeline:
// policy checks, ledger mutation, tier transition detection and best-effort
// title sync.
type EventService struct {
	db       *gorm.DB
	ledger   *LedgerService
	syncer   TitleSyncer
	reporter FailureReporter
	maxDelta int
}

func NewEventService(db *gorm.DB, ledger *LedgerService, syncer TitleSyncer, reporter FailureReporter, maxDelta int) *EventService {
	if maxDelta <= 0 {
		maxDelta = 1000
	}
	return &EventService{db: db, ledger: ledger, syncer: syncer, reporter: reporter, maxDelta: maxDelta}
}

// ApplyEvent mutates the target's balance and reports the transition.
// Policy violations return an error before any mutation. Title sync runs
// after the ledger commit and its failure only shows up in the result.
func (s *EventService) ApplyEvent(ev Event) (*ApplyResult, error) {
	if ev.TargetID == 0 {
		return nil, ErrBadTarget
	}
	if (ev.Source == SourceThank || ev.Source == SourceReaction) && ev.ActorID == ev.TargetID {
		return nil, ErrSelfCredit
	}
	if ev.Delta > s.maxDelta || ev.Delta < -s.maxDelta {
		return nil, fmt.Errorf("%w: %d (cap %d)", ErrDeltaTooLarge, ev.Delta, s.maxDelta)
	}

	var oldPoints int
	entry, err := s.ledger.Upsert(ev.ChatID, ev.TargetID, func(prior models.LedgerEntry) models.LedgerEntry {
		oldPoints = prior.Points
		next := prior
		next.Points = prior.Points + ev.Delta
		if ev.TargetName != "" {
			next.DisplayName = ev.TargetName
		}
		return next
	})
	if err != nil {
		return nil, err
	}

	res := &ApplyResult{
		OldPoints: oldPoints,
		NewPoints: entry.Points,
		OldTier:   rank.TierFor(oldPoints),
		NewTier:   rank.TierFor(entry.Points),
	}

	if ev.Reason != "" {
		log.Printf("ledger: chat %d user %d %+d (%s) by %d", ev.ChatID, ev.TargetID, ev.Delta, ev.Reason, ev.ActorID)
	}

	if s.syncer != nil {
		sync := s.syncer.Sync(ev.ChatID, ev.TargetID, entry.Points)
		res.TitleSynced = sync.Synced
		res.IsOwner = sync.IsOwner
		res.SyncErr = sync.Err
		if sync.Err != nil {
			log.Printf("title sync failed: chat %d user %d: %v", ev.ChatID, ev.TargetID, sync.Err)
			if s.reporter != nil {
				s.reporter.ReportSyncFailure(ev.ChatID, ev.TargetID, sync.Err)
			}
		}
	}

	// The owner keeps the styling override and never gets rank-up noise.
	if res.OldTier != res.NewTier && !res.IsOwner {
		changed, err := s.markTier(ev.ChatID, ev.TargetID, res.NewTier)
		if err != nil {
			log.Printf("rank record: chat %d user %d: %v", ev.ChatID, ev.TargetID, err)
		}
		res.TierChanged = changed
	}

	return res, nil
}

// markTier records the new tier and reports whether it actually changed,
// so a crossing notifies exactly once even under concurrent events.
func (s *EventService) markTier(chatID, userID int64, tier rank.Tier) (bool, error) {
	lock := s.ledger.locks.get(chatID, userID)
	lock.Lock()
	defer lock.Unlock()

	var rec models.RankRecord
	err := s.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.RankRecord{ChatID: chatID, UserID: userID, Tier: tier.String()}
		if err := s.db.Create(&rec).Error; err != nil {
			return false, fmt.Errorf("rank record write: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("rank record read: %w", err)
	}

	if rec.Tier == tier.String() {
		return false, nil
	}

	rec.Tier = tier.String()
	if err := s.db.Save(&rec).Error; err != nil {
		return false, fmt.Errorf("rank record write: %w", err)
	}
	return true, nil
}

// MaxDelta reports the per-operation cap for manual grants.
func (s *EventService) MaxDelta() int {
	return s.maxDelta
}
