// Package scheduler runs periodic maintenance jobs such as membership
// expiry.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultExpirySchedule runs five minutes past every hour.
const DefaultExpirySchedule = "5 * * * *"

// Expirer moves memberships whose term ended before now to expired.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler wraps a cron runner. Jobs never overlap with themselves.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	running map[string]bool
}

func New(log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 5 * time.Minute,
		running: map[string]bool{},
	}
}

// AddExpiryJob registers the membership expiry job under spec.
func (s *Scheduler) AddExpiryJob(spec string, e Expirer) error {
	if spec == "" {
		spec = DefaultExpirySchedule
	}
	return s.add("membership-expiry", spec, func(ctx context.Context) error {
		n, err := e.ExpireDue(ctx, s.now())
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Infow("memberships expired", "count", n)
		}
		return nil
	})
}

func (s *Scheduler) add(name, spec string, job func(ctx context.Context) error) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Infow("job scheduled", "job", name, "spec", spec)
	return nil
}

// run executes job unless a previous run of it is still going.
func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.log.Warnw("skipping job, previous run still active", "job", name)
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[name] = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.log.Errorw("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	s.log.Debugw("job finished", "job", name, "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
