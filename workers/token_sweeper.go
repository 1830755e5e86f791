package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TokenSweeper is implemented by the shutdown service.
type TokenSweeper interface {
	SweepExpired(ctx context.Context, retention time.Duration) (int, error)
}

type TokenSweeperConfig struct {
	Interval  time.Duration `json:"interval"`
	Retention time.Duration `json:"retention"`
}

type TokenSweeperStats struct {
	Runs          int64     `json:"runs"`
	Failures      int64     `json:"failures"`
	TokensRemoved int64     `json:"tokensRemoved"`
	LastRunAt     time.Time `json:"lastRunAt"`
	StartTime     time.Time `json:"startTime"`
}

// TokenSweepWorker periodically removes shutdown tokens that expired longer
// ago than the retention window. Expiry itself is evaluated lazily by the
// verifier; this worker only reclaims storage.
type TokenSweepWorker struct {
	sweeper TokenSweeper
	config  TokenSweeperConfig

	isRunning bool
	mutex     sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      TokenSweeperStats
	statsMutex sync.RWMutex
}

func NewTokenSweepWorker(sweeper TokenSweeper, config TokenSweeperConfig) *TokenSweepWorker {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.Retention < 0 {
		config.Retention = 0
	}

	return &TokenSweepWorker{
		sweeper: sweeper,
		config:  config,
	}
}

func (tw *TokenSweepWorker) Start() error {
	tw.mutex.Lock()
	defer tw.mutex.Unlock()

	if tw.isRunning {
		return nil
	}

	tw.ctx, tw.cancel = context.WithCancel(context.Background())
	tw.isRunning = true

	tw.statsMutex.Lock()
	tw.stats.StartTime = time.Now()
	tw.statsMutex.Unlock()

	tw.wg.Add(1)
	go tw.loop()

	logrus.WithFields(logrus.Fields{
		"interval":  tw.config.Interval,
		"retention": tw.config.Retention,
	}).Info("Token sweep worker started")
	return nil
}

func (tw *TokenSweepWorker) Stop() error {
	tw.mutex.Lock()
	defer tw.mutex.Unlock()

	if !tw.isRunning {
		return nil
	}

	tw.cancel()
	tw.isRunning = false
	tw.wg.Wait()

	logrus.Info("Token sweep worker stopped")
	return nil
}

func (tw *TokenSweepWorker) loop() {
	defer tw.wg.Done()

	ticker := time.NewTicker(tw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-tw.ctx.Done():
			return
		case <-ticker.C:
			tw.RunOnce(tw.ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed tokens.
func (tw *TokenSweepWorker) RunOnce(ctx context.Context) int {
	removed, err := tw.sweeper.SweepExpired(ctx, tw.config.Retention)

	tw.statsMutex.Lock()
	tw.stats.Runs++
	tw.stats.LastRunAt = time.Now()
	if err != nil {
		tw.stats.Failures++
	} else {
		tw.stats.TokensRemoved += int64(removed)
	}
	tw.statsMutex.Unlock()

	if err != nil {
		logrus.WithError(err).Error("Shutdown token sweep failed")
		return 0
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Info("Expired shutdown tokens removed")
	}
	return removed
}

func (tw *TokenSweepWorker) GetStats() TokenSweeperStats {
	tw.statsMutex.RLock()
	defer tw.statsMutex.RUnlock()
	return tw.stats
}
