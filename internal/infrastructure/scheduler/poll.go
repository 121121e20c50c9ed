package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Interval bounds
// ---------------------------------------------------------------------------

const (
	// MinIntervalMinutes is the shortest poll interval accepted
	MinIntervalMinutes = 1
	// MaxIntervalMinutes is the longest poll interval accepted (one week)
	MaxIntervalMinutes = 10080
	// DefaultIntervalMinutes is used when no interval is configured
	DefaultIntervalMinutes = 5
)

// ClampIntervalMinutes silently clamps an interval into the accepted range.
// Out-of-range requests are corrected rather than rejected, so the watcher
// never ends up without a timer.
func ClampIntervalMinutes(minutes int) int {
	if minutes < MinIntervalMinutes {
		return MinIntervalMinutes
	}
	if minutes > MaxIntervalMinutes {
		return MaxIntervalMinutes
	}
	return minutes
}

// ---------------------------------------------------------------------------
// Executor
// ---------------------------------------------------------------------------

// Executor runs one poll cycle on each scheduler firing
type Executor interface {
	Execute(ctx context.Context) error
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context) error

// Execute calls f(ctx)
func (f ExecutorFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// ---------------------------------------------------------------------------
// PollScheduler
// ---------------------------------------------------------------------------

// Config holds poll scheduler configuration
type Config struct {
	// IntervalMinutes is the initial poll interval; clamped on use
	IntervalMinutes int
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{IntervalMinutes: DefaultIntervalMinutes}
}

// PollScheduler fires the poll cycle on a fixed interval. The interval can be
// replaced at runtime; a reschedule also fires one cycle immediately so a
// shortened interval takes effect without waiting out the old one.
type PollScheduler struct {
	executor Executor
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	intervalMinutes int
	reschedule      chan time.Duration
}

// NewPollScheduler creates a new poll scheduler
func NewPollScheduler(config Config, executor Executor, logger *zap.Logger) (*PollScheduler, error) {
	if executor == nil {
		return nil, ErrInvalidConfig
	}
	if config.IntervalMinutes == 0 {
		config.IntervalMinutes = DefaultIntervalMinutes
	}

	return &PollScheduler{
		executor:        executor,
		logger:          logger,
		intervalMinutes: ClampIntervalMinutes(config.IntervalMinutes),
		reschedule:      make(chan time.Duration, 1),
	}, nil
}

// IntervalMinutes returns the currently effective poll interval
func (s *PollScheduler) IntervalMinutes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalMinutes
}

// Start starts the scheduler loop
func (s *PollScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	interval := s.intervalMinutes
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx, time.Duration(interval)*time.Minute)

	s.logger.Info("Poll scheduler started",
		zap.Int("interval_minutes", interval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *PollScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Poll scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Poll scheduler stop timed out")
		return ctx.Err()
	}
}

// Reschedule replaces the poll interval and fires one cycle immediately.
// The requested interval is clamped; the effective value is returned.
func (s *PollScheduler) Reschedule(intervalMinutes int) (int, error) {
	effective := ClampIntervalMinutes(intervalMinutes)

	s.mu.Lock()
	s.intervalMinutes = effective
	running := s.isRunning
	s.mu.Unlock()

	if !running {
		return effective, ErrSchedulerNotRunning
	}

	// Collapse back-to-back reschedules: only the latest interval matters.
	select {
	case s.reschedule <- time.Duration(effective) * time.Minute:
	default:
		<-s.reschedule
		s.reschedule <- time.Duration(effective) * time.Minute
	}

	s.logger.Info("Poll scheduler rescheduled",
		zap.Int("requested_minutes", intervalMinutes),
		zap.Int("effective_minutes", effective),
	)

	return effective, nil
}

// TriggerNow runs one poll cycle immediately, bypassing the timer
func (s *PollScheduler) TriggerNow(ctx context.Context) error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	return s.executor.Execute(ctx)
}

// runLoop fires the executor on each tick until the context is cancelled
func (s *PollScheduler) runLoop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case newInterval := <-s.reschedule:
			ticker.Reset(newInterval)
			s.execute(ctx)
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

func (s *PollScheduler) execute(ctx context.Context) {
	if err := s.executor.Execute(ctx); err != nil {
		s.logger.Error("Scheduled poll cycle failed", zap.Error(err))
	}
}
