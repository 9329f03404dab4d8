package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanerDeletesAfterDelay(t *testing.T) {
	api := newFakeBotAPI(t, StatusMember)
	c := NewCleaner(api.client())
	defer c.Stop()

	c.Schedule(1, 10, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return api.callCount("deleteMessage") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCleanerStopCancelsPending(t *testing.T) {
	api := newFakeBotAPI(t, StatusMember)
	c := NewCleaner(api.client())

	c.SchedulePair(1, 10, 11, 50*time.Millisecond)
	c.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, api.callCount("deleteMessage"))

	// Scheduling after Stop is a no-op.
	c.Schedule(1, 12, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, api.callCount("deleteMessage"))
}
