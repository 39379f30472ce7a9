package idempotency

import (
	"context"
	"fmt"
	"time"

	"production_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// Sweeper periodically deletes expired records.
type Sweeper struct {
	guard *Guard
	spec  string
	log   *logger.Logger
	cron  *cron.Cron
}

// NewSweeper schedules guard.Sweep on a cron spec such as "@every 15m".
func NewSweeper(guard *Guard, spec string, log *logger.Logger) *Sweeper {
	return &Sweeper{
		guard: guard,
		spec:  spec,
		log:   log,
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start registers the job and starts the cron runner.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("schedule idempotency sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info("idempotency sweep scheduled", "spec", s.spec)
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.guard.Sweep(ctx)
	if err != nil {
		s.log.Error("idempotency sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("idempotency sweep removed expired keys", "count", n)
	}
}
