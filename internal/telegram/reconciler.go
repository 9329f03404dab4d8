package telegram

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/t03ya/ratingMKC/internal/rank"
	"github.com/t03ya/ratingMKC/internal/services"
)

// Reconciler makes the chat's visible custom title for a user match the
// title derived from their balance. All failures come back inside the
// SyncResult; nothing escapes this boundary as an error.
type Reconciler struct {
	client      *Client
	ownerLabel  string
	attempts    int
	backoff     time.Duration
	promoteWait time.Duration

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

func NewReconciler(client *Client, ownerLabel string) *Reconciler {
	return &Reconciler{
		client:      client,
		ownerLabel:  ownerLabel,
		attempts:    3,
		backoff:     2 * time.Second,
		promoteWait: 1 * time.Second,
		inflight:    make(map[string]*sync.Mutex),
	}
}

func (r *Reconciler) lockFor(chatID, userID int64) *sync.Mutex {
	key := fmt.Sprintf("%d:%d", chatID, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.inflight[key]
	if !ok {
		m = &sync.Mutex{}
		r.inflight[key] = m
	}
	return m
}

// Sync drives the reconciliation protocol: member status, privilege grant
// when needed, then the title write with bounded retries. Two syncs for the
// same (chat, user) never run concurrently; the second waits for the first.
func (r *Reconciler) Sync(chatID, userID int64, points int) services.SyncResult {
	lock := r.lockFor(chatID, userID)
	lock.Lock()
	defer lock.Unlock()

	member, err := r.client.GetChatMember(chatID, userID)
	if err != nil {
		return services.SyncResult{Err: fmt.Errorf("get member status: %w", err)}
	}

	isOwner := member.Status == StatusCreator

	if !isOwner && member.Status != StatusAdministrator {
		if err := r.client.PromoteChatMember(chatID, userID); err != nil {
			return services.SyncResult{IsOwner: isOwner, Err: fmt.Errorf("promote: %w", err)}
		}
		// The promotion applies eventually on the platform side; a title
		// write right away tends to land on the old permission set.
		time.Sleep(r.promoteWait)
	}

	label := ""
	if isOwner {
		label = r.ownerLabel
	}
	title := rank.Title(points, label)

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		lastErr = r.client.SetChatAdministratorCustomTitle(chatID, userID, title)
		if lastErr == nil {
			return services.SyncResult{Synced: true, IsOwner: isOwner}
		}
		if !IsRetryable(lastErr) {
			log.Printf("reconciler: chat %d user %d: non-retryable: %v", chatID, userID, lastErr)
			break
		}
		if attempt < r.attempts {
			time.Sleep(r.backoff)
		}
	}

	return services.SyncResult{IsOwner: isOwner, Err: fmt.Errorf("set title: %w", lastErr)}
}

// IsOwner is the single owner-flag query used by every consumer.
func (r *Reconciler) IsOwner(chatID, userID int64) bool {
	member, err := r.client.GetChatMember(chatID, userID)
	if err != nil {
		return false
	}
	return member.Status == StatusCreator
}
