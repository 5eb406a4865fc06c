package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger deletes expired sessions.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Janitor periodically purges expired sessions until shut down.
type Janitor struct {
	purger   Purger
	interval time.Duration
	logger   logrus.FieldLogger

	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewJanitor(purger Purger, interval time.Duration, logger logrus.FieldLogger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Janitor{
		purger:   purger,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop. Calling Start on a running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.sweep(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				j.sweep(loopCtx)
			}
		}
	}()
	j.logger.Infof("session janitor started, interval %s", j.interval)
}

// Shutdown stops the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Shutdown() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	j.wg.Wait()
	j.logger.Info("session janitor stopped")
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warnf("purge expired sessions: %v", err)
		}
		return
	}
	if n > 0 {
		j.logger.WithField("count", n).Info("purged expired sessions")
	}
}
