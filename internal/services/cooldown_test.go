package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownDeniesInsideWindow(t *testing.T) {
	s := NewCooldownService(testDB(t), 5*time.Minute)
	now := time.Now()

	allowed, _, err := s.TryConsume(1, 42, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, wait, err := s.TryConsume(1, 42, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.InDelta(t, (4 * time.Minute).Seconds(), wait.Seconds(), 1)
}

func TestCooldownAllowsAfterWindow(t *testing.T) {
	s := NewCooldownService(testDB(t), 5*time.Minute)
	now := time.Now()

	allowed, _, err := s.TryConsume(1, 42, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = s.TryConsume(1, 42, now.Add(6*time.Minute))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCooldownZeroWindowAlwaysAllows(t *testing.T) {
	s := NewCooldownService(testDB(t), 0)
	now := time.Now()

	for i := 0; i < 3; i++ {
		allowed, _, err := s.TryConsume(1, 42, now)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestCooldownIsPerChatAndUser(t *testing.T) {
	s := NewCooldownService(testDB(t), 5*time.Minute)
	now := time.Now()

	allowed, _, err := s.TryConsume(1, 42, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Different user, same chat.
	allowed, _, err = s.TryConsume(1, 43, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Same user, different chat.
	allowed, _, err = s.TryConsume(2, 42, now)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCooldownConcurrentConsumeAdmitsOne(t *testing.T) {
	s := NewCooldownService(testDB(t), 5*time.Minute)
	now := time.Now()

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			allowed, _, err := s.TryConsume(1, 42, now)
			assert.NoError(t, err)
			if allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}
