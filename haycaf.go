// Package haycaf wires the result socket server into a runnable service:
// each run listens for the harness, waits for its result and reports it.
package haycaf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/SethEden/Hay-CAF/exitcodes"
	"github.com/SethEden/Hay-CAF/logging"
	"github.com/SethEden/Hay-CAF/service"
	"github.com/SethEden/Hay-CAF/sockets"
	"github.com/SethEden/Hay-CAF/types"
)

// ResultServer is the part of sockets.Server a run drives.
type ResultServer interface {
	Connect(ctx context.Context) error
	GetTestResult(ctx context.Context, timeout time.Duration) (types.TestResult, error)
	ServerHasEndedCallback(ctx context.Context, cb func(failed bool), timeout time.Duration) error
	SessionID() string
	Terminate()
	Quit()
}

var _ ResultServer = (*sockets.Server)(nil)

// HayCAF implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &HayCAF{}

// HayCAF runs harness sessions against the result socket server.
type HayCAF struct {
	config    *Config
	version   string
	server    ResultServer
	service   *service.Service
	formatter ResultFormatter
	reporter  MetricsReporter
	scheduler RunScheduler
	fileSink  *logging.FileSink

	mu     sync.Mutex
	result *RunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates the lifecycle and its socket server. Harness output is echoed
// to stdout and, when a log directory is configured, to per-session files.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*HayCAF, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating hay-caf with config",
		"addr", config.Socket.Address(),
		"resultTag", config.Socket.ResultTag,
		"resultTimeout", config.ResultTimeout,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"logDir", config.LogDir)

	sink := logging.MultiSink{logging.NewConsoleSink(os.Stdout, config.StripANSI)}
	var fileSink *logging.FileSink
	if config.LogDir != "" {
		var err error
		fileSink, err = logging.NewFileSink(config.LogDir, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create session log: %w", err)
		}
		sink = append(sink, fileSink)
	}

	svc := service.New()
	svc.HealthzAddr = config.HealthzAddr
	svc.MetricsAddr = config.MetricsAddr

	h := newHayCAF(config, version, sockets.New(config.Socket, config.Log, sink), shutdownCallback)
	h.service = svc
	h.fileSink = fileSink
	h.formatter = NewConsoleResultFormatter(config.Log, os.Stdout)
	return h, nil
}

func newHayCAF(config *Config, version string, server ResultServer, shutdownCallback func(error)) *HayCAF {
	return &HayCAF{
		config:           config,
		version:          version,
		server:           server,
		formatter:        NewConsoleResultFormatter(config.Log, io.Discard),
		reporter:         NewDefaultMetricsReporter(),
		scheduler:        NewIntervalScheduler(config.RunInterval, config.RunOnce, config.Log),
		shutdownCallback: shutdownCallback,
	}
}

// Start runs the first harness session and, in continuous mode, schedules
// the following ones.
// Start implements the cliapp.Lifecycle interface.
func (h *HayCAF) Start(ctx context.Context) error {
	if h.service != nil {
		h.service.Start(ctx)
	}

	if h.config.RunOnce {
		h.config.Log.Info("Starting hay-caf in run-once mode", "version", h.version)
	} else {
		h.config.Log.Info("Starting hay-caf in continuous mode", "version", h.version, "interval", h.config.RunInterval)
	}

	h.scheduler.RegisterCallback(h.runTest)
	if err := h.scheduler.Start(ctx); err != nil {
		h.config.Log.Error("Runtime error running tests", "error", err)
		return err
	}

	if !h.config.RunOnce {
		return nil
	}

	result := h.Result()
	if result != nil && result.Failed() {
		h.config.Log.Warn("Run-once test run failed, returning exit code", "code", exitcodes.TestFailure)
		return NewTestFailureError(result.RunID, result.Result)
	}

	h.config.Log.Info("Tests completed, exiting (run-once mode)")
	go func() {
		h.shutdownCallback(nil)
	}()
	return nil
}

// runTest drives one harness session: listen, await the result, wait for
// the harness to end and report.
func (h *HayCAF) runTest(ctx context.Context) error {
	runID := uuid.New().String()
	log := h.config.Log.With("run_id", runID)
	start := time.Now()

	if err := h.server.Connect(ctx); err != nil {
		return NewRuntimeError(fmt.Errorf("failed to start socket server: %w", err))
	}
	log.Info("Waiting for harness result", "timeout", h.config.ResultTimeout)

	result, err := h.server.GetTestResult(ctx, h.config.ResultTimeout)
	run := &RunResult{
		RunID:     runID,
		SessionID: h.server.SessionID(),
		Result:    result,
	}
	if err != nil {
		h.server.Terminate()
		run.Err = err
		run.Duration = time.Since(start)
		h.finish(run)
		if errors.Is(err, sockets.ErrResultTimeout) {
			log.Error("No test result before timeout", "err", err)
		}
		return NewRuntimeError(err)
	}

	err = h.server.ServerHasEndedCallback(ctx, func(failed bool) {
		run.HarnessEnded = !failed
	}, h.config.Socket.ServerEndedTimeout)
	if err != nil {
		log.Warn("Stopped waiting for harness to end", "err", err)
	}
	if !run.HarnessEnded {
		h.server.Terminate()
	}

	run.Duration = time.Since(start)
	h.finish(run)
	log.Info("Test run completed", "result", run.Result, "harness_ended", run.HarnessEnded, "duration", run.Duration)
	return nil
}

func (h *HayCAF) finish(run *RunResult) {
	h.mu.Lock()
	h.result = run
	h.mu.Unlock()

	if err := h.formatter.FormatResults(run); err != nil {
		h.config.Log.Warn("Failed to format results", "err", err)
	}
	h.reporter.ReportResults(run)
}

// Result returns the most recent run result.
func (h *HayCAF) Result() *RunResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Stop stops the scheduler and the socket server.
// Stop implements the cliapp.Lifecycle interface.
func (h *HayCAF) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping hay-caf")
	_ = h.scheduler.Stop()
	h.server.Quit()

	var result error
	if err := h.scheduler.WaitForShutdown(ctx); err != nil {
		result = errors.Join(result, err)
	}
	if h.fileSink != nil {
		if err := h.fileSink.Close(); err != nil {
			result = errors.Join(result, err)
		}
	}
	if h.service != nil {
		h.service.Shutdown()
	}
	h.config.Log.Info("hay-caf stopped")
	return result
}

// Stopped implements the cliapp.Lifecycle interface.
func (h *HayCAF) Stopped() bool {
	return h.scheduler.Stopped()
}
