// Package sweep runs periodic optimization passes against a scheduler on a
// cron schedule, so budget pressure drains in the background instead of only
// at activation time.
package sweep

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/andywolf/ctxbudget/internal/budget"
)

// Sweeper triggers Optimize on a cron schedule whenever pressure has reached
// warning or above. Overlapping runs are suppressed: a tick firing while the
// previous pass is still in flight is skipped.
type Sweeper struct {
	sched    *budget.Scheduler
	cron     *cron.Cron
	schedule string
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	sweeps  int
}

// New creates a Sweeper. Schedule accepts standard 5-field cron expressions
// and shorthands such as "@every 1m". A nil logger disables diagnostics.
func New(sched *budget.Scheduler, schedule string, logger *log.Logger) (*Sweeper, error) {
	if schedule == "" {
		return nil, fmt.Errorf("sweep schedule is required")
	}
	s := &Sweeper{
		sched:    sched,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduling. Runs happen on the cron's own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logf("sweep started, schedule %q", s.schedule)
}

// Stop stops scheduling and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logf("sweep stopped after %d pass(es)", s.Sweeps())
}

// Sweeps returns how many optimization passes have run.
func (s *Sweeper) Sweeps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

// runOnce performs one conditional optimization pass.
func (s *Sweeper) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.sched.Pressure() == budget.PressureNormal {
		return
	}

	// Zero target drains down to the warning watermark.
	res := s.sched.Optimize(0)

	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()

	if len(res.Removed) > 0 {
		s.logf("sweep freed %d across %d unit(s), weight now %d",
			res.FreedWeight, len(res.Removed), res.NewWeight)
	}
}

func (s *Sweeper) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
