package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/t03ya/ratingMKC/internal/rank"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncer struct {
	mu      sync.Mutex
	calls   int
	synced  bool
	isOwner bool
	err     error
}

func (s *stubSyncer) Sync(chatID, userID int64, points int) SyncResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return SyncResult{Synced: s.synced, IsOwner: s.isOwner, Err: s.err}
}

type stubReporter struct {
	mu    sync.Mutex
	calls int
}

func (r *stubReporter) ReportSyncFailure(chatID, userID int64, reason error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

func (r *stubReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestEventService(t *testing.T) (*EventService, *stubSyncer, *stubReporter) {
	db := testDB(t)
	syncer := &stubSyncer{synced: true}
	reporter := &stubReporter{}
	svc := NewEventService(db, NewLedgerService(db), syncer, reporter, 1000)
	return svc, syncer, reporter
}

func thankEvent(actor, target int64, delta int) Event {
	return Event{
		ChatID:     100,
		ActorID:    actor,
		TargetID:   target,
		TargetName: "bob",
		Delta:      delta,
		Source:     SourceThank,
	}
}

func TestApplyEventAccrual(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	var last *ApplyResult
	for i := 0; i < 14; i++ {
		res, err := svc.ApplyEvent(thankEvent(2, 1, 1))
		require.NoError(t, err)
		last = res
	}

	assert.Equal(t, 14, last.NewPoints)
	assert.Equal(t, rank.Basic, last.NewTier)
	assert.False(t, last.TierChanged)

	res, err := svc.ApplyEvent(thankEvent(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 15, res.NewPoints)
	assert.Equal(t, rank.Basic, res.OldTier)
	assert.Equal(t, rank.Pro, res.NewTier)
	assert.True(t, res.TierChanged, "crossing to PRO must notify")

	// The next point inside PRO is not a crossing.
	res, err = svc.ApplyEvent(thankEvent(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 16, res.NewPoints)
	assert.False(t, res.TierChanged)
}

func TestApplyEventSelfCreditRejected(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	_, err := svc.ApplyEvent(thankEvent(1, 1, 1))
	assert.ErrorIs(t, err, ErrSelfCredit)

	ev := thankEvent(1, 1, 1)
	ev.Source = SourceReaction
	_, err = svc.ApplyEvent(ev)
	assert.ErrorIs(t, err, ErrSelfCredit)

	// No mutation happened.
	ledger := NewLedgerService(svc.db)
	entry, err := ledger.Get(100, 1)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestApplyEventCommandMayTargetSelf(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	ev := thankEvent(1, 1, 1)
	ev.Source = SourceCommand
	res, err := svc.ApplyEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewPoints)
}

func TestApplyEventClampsAtZero(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	ev := thankEvent(2, 5, 2)
	ev.Source = SourceOperator
	_, err := svc.ApplyEvent(ev)
	require.NoError(t, err)

	ev.Delta = -3
	res, err := svc.ApplyEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OldPoints)
	assert.Equal(t, 0, res.NewPoints)
}

func TestApplyEventOverCapRejected(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	ev := thankEvent(2, 5, 1001)
	ev.Source = SourceOperator
	_, err := svc.ApplyEvent(ev)
	assert.ErrorIs(t, err, ErrDeltaTooLarge)

	ledger := NewLedgerService(svc.db)
	entry, err := ledger.Get(100, 5)
	require.NoError(t, err)
	assert.Nil(t, entry, "ledger unchanged after rejection")
}

func TestApplyEventNoTarget(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	_, err := svc.ApplyEvent(Event{ChatID: 100, ActorID: 2, Delta: 1, Source: SourceThank})
	assert.ErrorIs(t, err, ErrBadTarget)
}

func TestApplyEventSurvivesTitleSyncFailure(t *testing.T) {
	svc, syncer, _ := newTestEventService(t)
	syncer.synced = false
	syncer.err = errors.New("telegram: 429 Too Many Requests")

	res, err := svc.ApplyEvent(thankEvent(2, 1, 1))
	require.NoError(t, err, "ledger correctness is never gated by title sync")
	assert.Equal(t, 1, res.NewPoints)
	assert.False(t, res.TitleSynced)
	assert.Error(t, res.SyncErr)
}

func TestApplyEventReportsSyncFailureToOperator(t *testing.T) {
	svc, syncer, reporter := newTestEventService(t)
	syncer.synced = false
	syncer.err = errors.New("telegram: 400 Bad Request: not enough rights")

	_, err := svc.ApplyEvent(thankEvent(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, reporter.count())

	syncer.synced = true
	syncer.err = nil
	_, err = svc.ApplyEvent(thankEvent(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, reporter.count(), "successful syncs are not reported")
}

func TestApplyEventOwnerNeverNotified(t *testing.T) {
	svc, syncer, _ := newTestEventService(t)
	syncer.isOwner = true

	ev := thankEvent(2, 1, 20)
	ev.Source = SourceOperator
	res, err := svc.ApplyEvent(ev)
	require.NoError(t, err)
	assert.NotEqual(t, res.OldTier, res.NewTier)
	assert.False(t, res.TierChanged, "owner crossings are suppressed")
}

func TestApplyEventCrossingNotifiesOnce(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	ev := thankEvent(2, 1, 15)
	ev.Source = SourceOperator
	res, err := svc.ApplyEvent(ev)
	require.NoError(t, err)
	assert.True(t, res.TierChanged)

	// Dropping below and crossing again is a new transition.
	ev.Delta = -1
	res, err = svc.ApplyEvent(ev)
	require.NoError(t, err)
	assert.True(t, res.TierChanged)

	ev.Delta = 1
	res, err = svc.ApplyEvent(ev)
	require.NoError(t, err)
	assert.True(t, res.TierChanged)
}

func TestApplyEventConcurrentSameTarget(t *testing.T) {
	svc, _, _ := newTestEventService(t)

	const n = 30
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		actor := int64(i + 2)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyEvent(thankEvent(actor, 1, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ledger := NewLedgerService(svc.db)
	entry, err := ledger.Get(100, 1)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, n, entry.Points)
}
