package sockets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SethEden/Hay-CAF/types"
)

// ErrResultTimeout is returned by GetTestResult when no result arrived in
// the allotted time.
var ErrResultTimeout = errors.New("the allotted time to retrieve the test result has passed")

// GetTestResult blocks until the harness reports a result, the session
// ends, the timeout elapses or ctx is done.
//
// When the session has ended the result captured during that session is
// returned and counts as retrieved, or TestResultFail if there was none. When a result is captured
// it is marked as retrieved and the end-of-script countdown starts.
func (s *Server) GetTestResult(ctx context.Context, timeout time.Duration) (types.TestResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s.mu.Lock()
	s.awaiting++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.awaiting--
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if s.serverHasEnded {
			if s.endedResult.IsSet() {
				s.endedRetrieved = true
			}
			result := s.endedResult.OrFail()
			s.mu.Unlock()
			s.log.Info("Server has ended, returning test result", "result", result)
			return result, nil
		}
		if s.testResult.IsSet() {
			s.retrieveLocked()
			result := s.testResult
			s.mu.Unlock()
			s.log.Info("Retrieved test result", "result", result)
			return result, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			s.log.Warn("Timed out waiting for test result", "timeout", timeout)
			return types.TestResultNone, fmt.Errorf("%w (waited %s)", ErrResultTimeout, timeout)
		case <-ctx.Done():
			return types.TestResultNone, ctx.Err()
		}
	}
}

// BeginEndOfScriptCountDown closes the server after d once a result has
// been retrieved, so a harness that never disconnects cannot hold the
// process open. It reports whether the countdown was started.
func (s *Server) BeginEndOfScriptCountDown(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.testResultRetrieved {
		return false
	}
	s.startCountdownLocked(d)
	return true
}

// ServerHasEndedCallback waits for the harness to end after its result was
// retrieved and calls cb(false). If that does not happen within timeout,
// cb(true) is called instead. A zero timeout uses the configured default.
func (s *Server) ServerHasEndedCallback(ctx context.Context, cb func(failed bool), timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.ServerEndedTimeout
	}
	s.sink.Announce(announceCallbackStart)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		done := s.serverHasEnded && (s.testResultRetrieved || s.endedRetrieved)
		changed := s.changed
		s.mu.Unlock()

		if done {
			cb(false)
			return nil
		}

		select {
		case <-changed:
		case <-timer.C:
			s.sink.Announce(announceCallbackTimeout)
			cb(true)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// retrieveLocked marks the current result as retrieved and starts the
// countdown once per session. Callers must hold s.mu.
func (s *Server) retrieveLocked() {
	if s.testResultRetrieved {
		return
	}
	s.testResultRetrieved = true
	s.startCountdownLocked(s.cfg.EndOfScriptCountdown)
}

func (s *Server) startCountdownLocked(d time.Duration) {
	if d <= 0 {
		d = DefaultEndOfScriptCountdown
	}
	s.stopCountdownLocked()
	s.countdown = time.AfterFunc(d, s.onCountdownExpired)
}

func (s *Server) stopCountdownLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *Server) onCountdownExpired() {
	s.log.Warn("End of script countdown expired, closing server")
	s.sink.Announce(announceCountdownExpired)
	s.forceClose()
}
