package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives monitoring cycles and history pruning on fixed
// intervals. Cycles never overlap: if one is still running when the next
// tick fires, that tick is skipped.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger
}

// NewScheduler creates a Scheduler running cycles every cycleInterval and,
// when pruneInterval is positive, pruning history every pruneInterval.
func NewScheduler(
	eng *Engine,
	cycleInterval time.Duration,
	pruneInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	if _, err := c.AddFunc(
		"@every "+cycleInterval.String(),
		s.runCycle,
	); err != nil {
		return nil, err
	}

	if pruneInterval > 0 {
		if _, err := c.AddFunc(
			"@every "+pruneInterval.String(),
			s.runPrune,
		); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop stops scheduling new cycles. The returned context is done once the
// in-flight cycle, if any, has finished; product-level writes are atomic,
// so an abandoned cycle leaves both stores valid.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runCycle() {
	ctx := context.Background()
	s.log.Info("scheduled cycle starting")
	if _, err := s.engine.RunCycle(ctx); err != nil {
		s.log.Error("scheduled cycle failed", "error", err)
	}
}

func (s *Scheduler) runPrune() {
	ctx := context.Background()
	s.log.Info("scheduled prune starting")
	if err := s.engine.RunPrune(ctx); err != nil {
		s.log.Error("scheduled prune failed", "error", err)
	}
}
