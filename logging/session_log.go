package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/SethEden/Hay-CAF/types"
)

// SessionFilePrefix prefixes every per-session message log.
const SessionFilePrefix = "session-"

// Record is one line of a session log.
type Record struct {
	Time      time.Time      `json:"time"`
	SessionID string         `json:"session_id,omitempty"`
	Message   *types.Message `json:"message,omitempty"`
	Event     string         `json:"event,omitempty"`
}

// FileSink writes every harness message as a JSON line into a file per
// harness session. Announcements go to the file of the latest session.
type FileSink struct {
	baseDir string
	log     log.Logger

	mu      sync.Mutex
	writers map[string]*AsyncFile
	current string
	closed  bool
	now     func() time.Time
}

// NewFileSink creates baseDir if needed.
func NewFileSink(baseDir string, logger log.Logger) (*FileSink, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}
	return &FileSink{
		baseDir: baseDir,
		log:     logger,
		writers: make(map[string]*AsyncFile),
		now:     time.Now,
	}, nil
}

// PathForSession returns the log file of a session.
func (f *FileSink) PathForSession(sessionID string) string {
	return filepath.Join(f.baseDir, SessionFilePrefix+safeFilename(sessionID)+".jsonl")
}

func (f *FileSink) Message(sessionID string, msg types.Message) {
	f.mu.Lock()
	f.current = sessionID
	f.mu.Unlock()
	f.write(sessionID, Record{SessionID: sessionID, Message: &msg})
}

func (f *FileSink) Announce(line string) {
	f.mu.Lock()
	sessionID := f.current
	f.mu.Unlock()
	if sessionID == "" {
		return
	}
	f.write(sessionID, Record{SessionID: sessionID, Event: line})
}

// Close flushes and closes every session file. Records arriving after
// Close are dropped.
func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	var firstErr error
	for path, w := range f.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", path, err)
		}
	}
	f.writers = make(map[string]*AsyncFile)
	return firstErr
}

func (f *FileSink) write(sessionID string, rec Record) {
	rec.Time = f.now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		f.log.Warn("Failed to encode session record", "session", sessionID, "err", err)
		return
	}
	w, err := f.writer(sessionID)
	if err != nil {
		f.log.Warn("Failed to open session log", "session", sessionID, "err", err)
		return
	}
	if w == nil {
		return
	}
	if err := w.Write(append(data, '\n')); err != nil && !errors.Is(err, errAsyncFileClosed) {
		f.log.Warn("Failed to write session log", "session", sessionID, "err", err)
	}
}

func (f *FileSink) writer(sessionID string) (*AsyncFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, nil
	}
	path := f.PathForSession(sessionID)
	if w, ok := f.writers[path]; ok {
		return w, nil
	}
	w, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	f.writers[path] = w
	return w, nil
}

// safeFilename replaces characters that are awkward in file names.
func safeFilename(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}
