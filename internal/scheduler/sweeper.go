// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs every five minutes, on the minute.
const DefaultSweepSchedule = "0 */5 * * * *"

// Sweeper is the engine surface the deadline sweep needs.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler that sweeps overdue project deadlines.
func NewScheduler(sweeper Sweeper, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  time.Minute,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunSweep); err != nil {
		log.Printf("[error] operation=scheduler.start schedule=%q error=%v", s.schedule, err)
		return err
	}

	log.Printf("[info] operation=scheduler.start schedule=%q", s.schedule)
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[info] operation=scheduler.stop")
}

// RunSweep runs one sweep. Overlapping runs are skipped.
func (s *Scheduler) RunSweep() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("[warn] operation=scheduler.sweep skipped=previous_run_active")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("[error] operation=scheduler.sweep error=%v", err)
		return
	}
	if n > 0 {
		log.Printf("[info] operation=scheduler.sweep due=%d duration=%s", n, time.Since(start))
	}
}
