package telegram

import (
	"fmt"
	"sync"
)

// authorCache remembers who wrote recent messages, because a reaction
// update does not carry the reacted message's author. Bounded: the oldest
// entry is evicted once the ring is full, so a reaction on a very old
// message simply no longer resolves to a target.
type authorCache struct {
	mu    sync.Mutex
	byKey map[string]User
	order []string
	next  int
	cap   int
}

func newAuthorCache(capacity int) *authorCache {
	return &authorCache{
		byKey: make(map[string]User, capacity),
		order: make([]string, capacity),
		cap:   capacity,
	}
}

func authorKey(chatID, messageID int64) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func (c *authorCache) remember(chatID, messageID int64, author User) {
	key := authorKey(chatID, messageID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old := c.order[c.next]; old != "" {
		delete(c.byKey, old)
	}
	c.order[c.next] = key
	c.next = (c.next + 1) % c.cap
	c.byKey[key] = author
}

func (c *authorCache) lookup(chatID, messageID int64) (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.byKey[authorKey(chatID, messageID)]
	return u, ok
}
