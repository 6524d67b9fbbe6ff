// Package sockets implements the TCP server the test harness reports to.
//
// The server accepts a harness connection, decodes the delimited JSON
// stream, echoes every message to the operator sink and watches for result
// lines. Callers block on GetTestResult until a result arrives, the
// harness goes away, or the allotted time passes.
package sockets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SethEden/Hay-CAF/classifier"
	"github.com/SethEden/Hay-CAF/framing"
	"github.com/SethEden/Hay-CAF/metrics"
	"github.com/SethEden/Hay-CAF/queue"
	"github.com/SethEden/Hay-CAF/types"
)

// Server is a single-harness result socket server. It can be connected,
// ended and connected again for consecutive test runs.
type Server struct {
	cfg        Config
	log        log.Logger
	sink       Sink
	classifier *classifier.Classifier
	tracer     trace.Tracer

	mu       sync.Mutex
	state    State
	listener net.Listener
	conns    map[net.Conn]struct{}
	session  string

	isConnected         bool
	serverHasEnded      bool
	testResultRetrieved bool
	testResult          types.TestResult

	// snapshot of the session that ended, read by waiters after end
	endedResult    types.TestResult
	endedRetrieved bool

	awaiting  int           // callers blocked in GetTestResult
	changed   chan struct{} // closed and replaced on every state change
	countdown *time.Timer

	wg sync.WaitGroup
}

// New creates a server. A nil sink discards operator output.
func New(cfg Config, logger log.Logger, sink Sink) *Server {
	if logger == nil {
		logger = log.New()
	}
	if sink == nil {
		sink = nopSink{}
	}
	cfg = cfg.withDefaults()
	return &Server{
		cfg:        cfg,
		log:        logger,
		sink:       sink,
		classifier: classifier.New(cfg.ResultTag),
		tracer:     otel.Tracer("hay-caf sockets"),
		conns:      make(map[net.Conn]struct{}),
		changed:    make(chan struct{}),
	}
}

// Connect starts listening for the harness. It is a no-op while a harness
// is connected or the server is already listening. An address already in
// use before any harness connected is logged and ignored.
func (s *Server) Connect(ctx context.Context) error {
	defer s.event("connect")()

	s.mu.Lock()
	s.testResultRetrieved = false
	s.serverHasEnded = false
	s.endedResult = types.TestResultNone
	s.endedRetrieved = false
	if s.isConnected || s.listener != nil {
		s.notifyLocked()
		s.mu.Unlock()
		s.log.Debug("Server already listening", "addr", s.Addr())
		return nil
	}
	s.mu.Unlock()

	addr := s.cfg.Address()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) && !s.IsConnected() {
			s.log.Warn("Address already in use, ignoring", "addr", addr, "err", err)
			metrics.RecordErrorDetails("listen", err)
			return nil
		}
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.wg.Add(1)
	s.listener = ln
	s.state = StateListening
	s.notifyLocked()
	s.mu.Unlock()

	s.onListening(ln.Addr())

	go s.acceptLoop(ln)
	return nil
}

// Terminate force-closes the listener and every open connection, stops the
// end-of-script countdown and waits for the server goroutines to exit.
func (s *Server) Terminate() {
	defer s.event("terminate")()
	s.forceClose()
	s.wg.Wait()

	s.mu.Lock()
	s.testResult = types.TestResultNone
	s.testResultRetrieved = false
	s.state = StateIdle
	s.notifyLocked()
	s.mu.Unlock()
}

// Quit handles an operator interrupt.
func (s *Server) Quit() {
	defer s.event("sigint")()
	s.mu.Lock()
	s.isConnected = false
	s.mu.Unlock()
	s.sink.Announce(announceDisconnecting)
	s.Terminate()
}

// Addr returns the listening address, or the configured one when the
// server is not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Address()
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isConnected
}

func (s *Server) HasEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverHasEnded
}

// TestResult returns the result captured in the current session, if any.
func (s *Server) TestResult() types.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testResult
}

// SessionID identifies the most recent harness connection.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.log.Error("Failed to accept harness connection", "err", err)
			metrics.RecordErrorDetails("accept", err)
			return
		}
		s.mu.Lock()
		current := s.listener == ln
		if current {
			s.conns[conn] = struct{}{}
		}
		s.mu.Unlock()
		if !current {
			// accepted while the listener was being closed
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()

	sessionID := s.onConnection(conn)
	_, span := s.tracer.Start(context.Background(), "harness connection", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("remote_addr", conn.RemoteAddr().String()),
	))
	defer span.End()

	decoder := framing.NewDecoder(s.cfg.Delimiter, s.log.With("session", sessionID))
	messages := queue.New()
	buf := make([]byte, s.cfg.ReadBufferSize)

	for {
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			s.onData(sessionID, decoder, messages, buf[:n], span)
		}
		if err == nil {
			continue
		}

		s.onDisconnect()
		switch {
		case errors.Is(err, io.EOF):
			s.onEnd()
		case errors.Is(err, net.ErrClosed):
			// closed locally by Terminate or the countdown, the harness
			// never gets to end the session itself
			s.markEnded(true)
		default:
			span.RecordError(err)
			s.onError(err)
		}
		break
	}

	_ = conn.Close()
	s.onClose(conn)
}

func (s *Server) onListening(addr net.Addr) {
	defer s.event("listening")()
	s.log.Info("Socket server listening", "addr", addr.String())
	s.sink.Announce(announceListening)
}

func (s *Server) onConnection(conn net.Conn) string {
	defer s.event("connection")()
	sessionID := uuid.New().String()

	s.mu.Lock()
	s.isConnected = true
	s.session = sessionID
	s.state = StateConnected
	s.notifyLocked()
	s.mu.Unlock()

	metrics.RecordConnection()
	s.log.Info("Harness connected", "session", sessionID, "remote", conn.RemoteAddr().String())
	s.sink.Announce(announceConnected)
	return sessionID
}

// onData runs one chunk through the decoder, records any result it
// carries and drains the message queue to the sink.
func (s *Server) onData(sessionID string, decoder *framing.Decoder, messages *queue.MessageQueue, chunk []byte, span trace.Span) {
	metrics.RecordChunk(len(chunk))
	s.log.Trace("Received chunk", "session", sessionID, "chunk", string(chunk))

	for _, payload := range decoder.Decode(chunk) {
		if result, ok := s.classifier.ClassifyPayload(payload); ok {
			s.captureResult(result)
			span.AddEvent("test result", trace.WithAttributes(attribute.String("result", string(result))))
		}
		if payload.HasMessage() {
			messages.Enqueue(payload.Items()...)
			s.log.Debug("Enqueued payload", "kind", payload.Kind, "queue_size", messages.Size())
		}
	}
	s.drain(sessionID, messages)
}

// drain empties the queue into the sink, checking each message for the
// harness end-of-test line.
func (s *Server) drain(sessionID string, messages *queue.MessageQueue) {
	if messages.IsEmpty() {
		return
	}
	s.setStateIf(StateConnected, StateDraining)
	defer s.setStateIf(StateDraining, StateConnected)

	for {
		msg, ok := messages.Dequeue()
		if !ok {
			return
		}
		s.sink.Message(sessionID, msg)
		if isEndOfTest(msg.Message) {
			s.onEndOfTest()
		}
	}
}

func (s *Server) onEndOfTest() {
	defer s.event("drain")()
	s.log.Info("Sending termination cmd to clients")

	s.mu.Lock()
	retrieved := s.testResultRetrieved
	s.mu.Unlock()
	if !retrieved {
		s.log.Warn("Harness ended before a test result was retrieved")
		s.sink.Announce(announcePremature)
		s.closeListener()
	}
}

func (s *Server) captureResult(result types.TestResult) {
	s.mu.Lock()
	s.testResult = result
	if s.awaiting > 0 {
		// a caller is blocked on the result, so it counts as retrieved now
		s.retrieveLocked()
	}
	s.notifyLocked()
	s.mu.Unlock()

	metrics.RecordTestResult(result)
	s.log.Info("Identified test result", "result", result)
}

func (s *Server) onError(err error) {
	defer s.event("error")()
	metrics.RecordErrorDetails("socket", err)

	if errors.Is(err, syscall.ECONNRESET) {
		s.log.Warn("Harness connection reset", "err", err)
		s.sink.Announce(announceReset)
		s.markEnded(false)
		s.closeListener()
		return
	}
	s.log.Error("Error on socket server", "err", err)
	s.markEnded(false)
}

func (s *Server) onDisconnect() {
	defer s.event("disconnect")()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isConnected {
		s.isConnected = false
		s.state = StateClosing
		s.notifyLocked()
	}
}

// onEnd handles the harness closing its side of the stream. The session is
// torn down and the listener closed so that a later Connect re-listens.
func (s *Server) onEnd() {
	defer s.event("end")()
	s.markEnded(true)
	s.sink.Announce(announceEnded)
	s.closeListener()
}

func (s *Server) onClose(conn net.Conn) {
	defer s.event("close")()
	s.mu.Lock()
	delete(s.conns, conn)
	s.isConnected = false
	switch {
	case s.listener != nil:
		s.state = StateListening
	case s.serverHasEnded:
		s.state = StateEnded
	default:
		s.state = StateIdle
	}
	s.notifyLocked()
	s.mu.Unlock()

	metrics.RecordDisconnection()
	_, _ = io.WriteString(s.cfg.Prompt, promptMarker)
}

// markEnded flags the session as ended. When clear is set the captured
// result and retrieval flag are reset for the next run.
func (s *Server) markEnded(clear bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isConnected = false
	s.serverHasEnded = true
	s.endedResult = s.testResult
	s.endedRetrieved = s.testResultRetrieved
	if clear {
		s.testResult = types.TestResultNone
		s.testResultRetrieved = false
		s.state = StateEnded
	}
	s.stopCountdownLocked()
	s.notifyLocked()
}

func (s *Server) closeListener() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.notifyLocked()
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Warn("Failed to close listener", "err", err)
		}
	}
}

// forceClose closes the listener and every connection without waiting.
func (s *Server) forceClose() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.stopCountdownLocked()
	s.notifyLocked()
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) setStateIf(from, to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == from {
		s.state = to
	}
}

// notifyLocked wakes every waiter. Callers must hold s.mu.
func (s *Server) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// event logs the begin/end banner of a lifecycle event.
func (s *Server) event(name string) func() {
	s.log.Debug("BEGIN event", "event", name)
	return func() {
		s.log.Debug("END event", "event", name)
	}
}

// isEndOfTest reports whether a harness message announces the end of the
// test: "end ..." optionally preceded by an RFC3339 timestamp.
func isEndOfTest(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	if strings.EqualFold(fields[0], "end") {
		return true
	}
	if len(fields) < 2 {
		return false
	}
	if _, err := time.Parse(time.RFC3339, strings.TrimSuffix(fields[0], ":")); err != nil {
		return false
	}
	return strings.EqualFold(fields[1], "end")
}
