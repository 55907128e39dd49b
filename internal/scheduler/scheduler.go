// Package scheduler ties the periodic tasks to cron triggers: queue
// dispatch, the market sentiment survey, and the StochRSI sweep. The
// tasks themselves never know how they are triggered.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Task is a unit of scheduled work. Errors are logged, not propagated;
// the next tick runs regardless.
type Task func(ctx context.Context) error

// Scheduler manages all cron tasks.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a Scheduler whose tasks observe ctx for cancellation.
func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		ctx:  ctx,
	}
}

// Register adds a task under a six-field cron spec.
func (s *Scheduler) Register(name, spec string, task Task) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.ctx.Err(); err != nil {
			return
		}
		if err := task(s.ctx); err != nil {
			log.Printf("[scheduler] task %s: %v", name, err)
		}
	}); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[scheduler] started")
}

// Stop stops the cron scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] stopped")
}
