package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/taskhub/pkg/logger"
	"github.com/charlesng35/taskhub/pkg/metrics"
)

const (
	defaultSchedule  = "@every 30s"
	defaultBatchSize = 100
	maxBatchesPerRun = 50
)

// Jobs is the notification work a sweep performs.
type Jobs interface {
	DispatchDue(ctx context.Context, limit int) (int, error)
	ExpirePending(ctx context.Context, limit int) (int, error)
}

// SweepStats counts what one sweep changed.
type SweepStats struct {
	Dispatched int
	Expired    int
}

// Sweeper periodically dispatches scheduled notifications that became due and fails
// pending ones that expired.
type Sweeper struct {
	jobs      Jobs
	schedule  cron.Schedule
	spec      string
	batchSize int
	now       func() time.Time
	log       *zap.Logger

	mu     sync.Mutex
	status RunStatus
}

// RunStatus describes the most recent sweep.
type RunStatus struct {
	Runs      int
	LastRunAt time.Time
	LastError string
	LastStats SweepStats
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithNow overrides the clock used for scheduling.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule overrides the cron specification, e.g. "@every 10s" or "*/5 * * * *".
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.spec = spec
		}
	}
}

// WithBatchSize caps how many records each job handles per query.
func WithBatchSize(size int) Option {
	return func(s *Sweeper) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewSweeper constructs a Sweeper. An invalid schedule is an error.
func NewSweeper(jobs Jobs, opts ...Option) (*Sweeper, error) {
	if jobs == nil {
		return nil, errors.New("sweeper: jobs are required")
	}
	s := &Sweeper{
		jobs:      jobs,
		spec:      defaultSchedule,
		batchSize: defaultBatchSize,
		now:       time.Now,
		log:       logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(s)
	}

	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return nil, fmt.Errorf("sweeper: parse schedule %q: %w", s.spec, err)
	}
	s.schedule = schedule
	return s, nil
}

// Next returns the next wake time after t.
func (s *Sweeper) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run sweeps on the schedule until ctx is cancelled. Failed sweeps are logged and the
// loop continues.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("notification sweeper started", zap.String("schedule", s.spec))
	defer s.log.Info("notification sweeper stopped")

	for {
		now := s.now()
		wait := s.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("notification sweep failed", zap.Error(err))
		}
	}
}

// RunOnce executes both jobs in batches until no work is left or ctx is cancelled.
// Errors from the jobs are combined.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var stats SweepStats
	var errs error

	dispatched, err := s.drain(ctx, s.jobs.DispatchDue)
	stats.Dispatched = dispatched
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("dispatch due notifications: %w", err))
	}

	expired, err := s.drain(ctx, s.jobs.ExpirePending)
	stats.Expired = expired
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expire pending notifications: %w", err))
	}

	s.record(stats, errs)
	if errs != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
	} else {
		metrics.SweepRuns.WithLabelValues("ok").Inc()
	}
	if stats.Dispatched > 0 || stats.Expired > 0 {
		s.log.Debug("notification sweep", zap.Int("dispatched", stats.Dispatched), zap.Int("expired", stats.Expired))
	}
	return stats, errs
}

// Status reports the outcome of the last sweep.
func (s *Sweeper) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Sweeper) record(stats SweepStats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Runs++
	s.status.LastRunAt = s.now()
	s.status.LastStats = stats
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
}

func (s *Sweeper) drain(ctx context.Context, job func(context.Context, int) (int, error)) (int, error) {
	total := 0
	for batch := 0; batch < maxBatchesPerRun; batch++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := job(ctx, s.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < s.batchSize {
			return total, nil
		}
	}
	return total, nil
}
