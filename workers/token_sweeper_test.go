package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	mutex     sync.Mutex
	results   []int
	err       error
	calls     int
	retention time.Duration
}

func (s *stubSweeper) SweepExpired(_ context.Context, retention time.Duration) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.calls++
	s.retention = retention
	if s.err != nil {
		return 0, s.err
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	removed := s.results[0]
	s.results = s.results[1:]
	return removed, nil
}

func (s *stubSweeper) callCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.calls
}

func TestTokenSweepWorker_RunOnce(t *testing.T) {
	sweeper := &stubSweeper{results: []int{3, 0, 2}}
	worker := NewTokenSweepWorker(sweeper, TokenSweeperConfig{Interval: time.Hour, Retention: 15 * time.Minute})

	assert.Equal(t, 3, worker.RunOnce(context.Background()))
	assert.Equal(t, 0, worker.RunOnce(context.Background()))
	assert.Equal(t, 2, worker.RunOnce(context.Background()))

	stats := worker.GetStats()
	assert.Equal(t, int64(3), stats.Runs)
	assert.Equal(t, int64(0), stats.Failures)
	assert.Equal(t, int64(5), stats.TokensRemoved)
	assert.False(t, stats.LastRunAt.IsZero())
	assert.Equal(t, 15*time.Minute, sweeper.retention)
}

func TestTokenSweepWorker_CountsFailures(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("redis unavailable")}
	worker := NewTokenSweepWorker(sweeper, TokenSweeperConfig{})

	assert.Equal(t, 0, worker.RunOnce(context.Background()))

	stats := worker.GetStats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(1), stats.Failures)
	assert.Equal(t, int64(0), stats.TokensRemoved)
}

func TestTokenSweepWorker_Defaults(t *testing.T) {
	worker := NewTokenSweepWorker(&stubSweeper{}, TokenSweeperConfig{Retention: -time.Minute})

	assert.Equal(t, time.Minute, worker.config.Interval)
	assert.Equal(t, time.Duration(0), worker.config.Retention)
}

func TestTokenSweepWorker_StartStop(t *testing.T) {
	sweeper := &stubSweeper{results: []int{1}}
	worker := NewTokenSweepWorker(sweeper, TokenSweeperConfig{Interval: 10 * time.Millisecond})

	require.NoError(t, worker.Start())
	require.NoError(t, worker.Start(), "starting twice is a no-op")

	assert.Eventually(t, func() bool {
		return sweeper.callCount() > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, worker.Stop())
	require.NoError(t, worker.Stop(), "stopping twice is a no-op")

	calls := sweeper.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, sweeper.callCount(), "no sweeps after stop")
	assert.False(t, worker.GetStats().StartTime.IsZero())
}
