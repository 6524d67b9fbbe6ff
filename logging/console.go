// Package logging holds the operator-facing sinks for harness output: the
// console echo and the per-session message log on disk.
package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/SethEden/Hay-CAF/types"
)

// ConsoleSink echoes harness messages and server announcements, one per
// line, to an io.Writer.
type ConsoleSink struct {
	mu        sync.Mutex
	out       io.Writer
	stripANSI bool
}

// NewConsoleSink creates a console sink. When stripANSI is set, terminal
// escape sequences sent by the harness are removed before printing.
func NewConsoleSink(out io.Writer, stripANSI bool) *ConsoleSink {
	return &ConsoleSink{out: out, stripANSI: stripANSI}
}

func (c *ConsoleSink) Message(_ string, msg types.Message) {
	c.println(msg.LogLine())
}

func (c *ConsoleSink) Announce(line string) {
	c.println(line)
}

func (c *ConsoleSink) println(line string) {
	if c.stripANSI {
		line = stripansi.Strip(line)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, line)
}
