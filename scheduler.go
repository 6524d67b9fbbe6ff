package haycaf

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// RunScheduler triggers harness runs, once or on an interval.
type RunScheduler interface {
	Start(ctx context.Context) error
	Stop() error
	RegisterCallback(func(ctx context.Context) error)
	WaitForShutdown(ctx context.Context) error
	Stopped() bool
}

// IntervalScheduler implements RunScheduler. The interval is measured from
// the end of one run to the start of the next, since a run lasts as long
// as the harness takes.
type IntervalScheduler struct {
	interval time.Duration
	runOnce  bool
	logger   log.Logger
	callback func(ctx context.Context) error

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewIntervalScheduler creates a new IntervalScheduler.
func NewIntervalScheduler(interval time.Duration, runOnce bool, logger log.Logger) *IntervalScheduler {
	return &IntervalScheduler{
		interval: interval,
		runOnce:  runOnce,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (s *IntervalScheduler) RegisterCallback(callback func(ctx context.Context) error) {
	s.callback = callback
}

// Start runs the callback immediately. In continuous mode later runs
// happen in the background and their errors are only logged.
func (s *IntervalScheduler) Start(ctx context.Context) error {
	if s.callback == nil {
		return errors.New("callback must be registered before starting scheduler")
	}

	s.done = make(chan struct{})
	s.running.Store(true)

	if s.runOnce {
		s.logger.Info("Starting scheduler in run-once mode")
		return s.callback(ctx)
	}

	s.logger.Info("Starting scheduler in continuous mode", "interval", s.interval)
	if err := s.callback(ctx); err != nil {
		s.logger.Error("Error running tests", "error", err)
	}

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

func (s *IntervalScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if !s.running.Load() {
				return
			}
			s.logger.Info("Running periodic tests")
			if err := s.callback(ctx); err != nil {
				s.logger.Error("Error running periodic tests", "error", err)
			}
			timer.Reset(s.interval)
		case <-s.done:
			s.logger.Debug("Done signal received, stopping scheduler")
			return
		case <-ctx.Done():
			s.logger.Debug("Context canceled, stopping scheduler")
			s.running.Store(false)
			return
		}
	}
}

func (s *IntervalScheduler) Stop() error {
	if !s.running.Swap(false) {
		s.logger.Debug("Scheduler already stopped, nothing to do")
		return nil
	}
	close(s.done)
	return nil
}

func (s *IntervalScheduler) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until the background loop has exited.
func (s *IntervalScheduler) WaitForShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for scheduler to stop", "error", ctx.Err())
		return ctx.Err()
	}
}
