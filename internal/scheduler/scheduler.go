// Package scheduler runs periodic maintenance with robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper is the maintenance work performed on each tick.
type Sweeper interface {
	ExpireJobs(ctx context.Context, now time.Time) (int64, error)
	DeleteOrphanedJobs(ctx context.Context) (int64, error)
}

// Report is the outcome of one sweep.
type Report struct {
	Expired  int64
	Orphaned int64
}

// Sweep expires overdue jobs and removes jobs without a company. Both
// steps run even if the first fails.
func Sweep(ctx context.Context, s Sweeper, now time.Time) (Report, error) {
	var r Report
	var errs []error

	expired, err := s.ExpireJobs(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	r.Expired = expired

	orphaned, err := s.DeleteOrphanedJobs(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	r.Orphaned = orphaned

	if len(errs) > 0 {
		return r, fmt.Errorf("sweep: %w", errors.Join(errs...))
	}
	return r, nil
}

// Scheduler wraps robfig/cron and runs Sweep on a schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	onDone  func(Report)
	timeout time.Duration
}

// New creates a Scheduler for the cron spec (for example "@hourly").
// onDone, when set, receives every non-empty report.
func New(sweeper Sweeper, spec string, onDone func(Report)) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		sweeper: sweeper,
		spec:    spec,
		onDone:  onDone,
		timeout: 5 * time.Minute,
	}
}

// Start registers the sweep and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	r, err := Sweep(ctx, s.sweeper, time.Now())
	if err != nil {
		log.Printf("[scheduler] %v", err)
	}
	log.Printf("[scheduler] Sweep done: expired=%d orphaned=%d", r.Expired, r.Orphaned)
	if s.onDone != nil && (r.Expired > 0 || r.Orphaned > 0) {
		s.onDone(r)
	}
}
