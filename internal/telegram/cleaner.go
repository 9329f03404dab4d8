package telegram

import (
	"sync"
	"time"
)

// Deletion delays used across the bot.
const (
	CommandDeleteDelay = 30 * time.Second
	RankUpDeleteDelay  = 5 * time.Minute
	AckDeleteDelay     = 2 * time.Second
	HintDeleteDelay    = 5 * time.Second
)

// Cleaner deletes ephemeral messages after a delay. Deletion failures
// (message already gone, bot lost rights) are swallowed; nobody is waiting
// on the outcome.
type Cleaner struct {
	client *Client

	mu      sync.Mutex
	timers  map[int]*time.Timer
	nextID  int
	stopped bool
}

func NewCleaner(client *Client) *Cleaner {
	return &Cleaner{
		client: client,
		timers: make(map[int]*time.Timer),
	}
}

// Schedule deletes (chat, message) after the given delay.
func (c *Cleaner) Schedule(chatID, messageID int64, after time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	id := c.nextID
	c.nextID++

	c.timers[id] = time.AfterFunc(after, func() {
		c.client.DeleteMessage(chatID, messageID)

		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()
	})
}

// SchedulePair deletes a command message and its reply together, the way
// command responses are cleaned up.
func (c *Cleaner) SchedulePair(chatID, commandID, replyID int64, after time.Duration) {
	c.Schedule(chatID, commandID, after)
	c.Schedule(chatID, replyID, after)
}

// Stop cancels all pending deletions.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
