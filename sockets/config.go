package sockets

import (
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/SethEden/Hay-CAF/classifier"
	"github.com/SethEden/Hay-CAF/framing"
)

const (
	DefaultHost                 = "127.0.0.1"
	DefaultPort                 = 3000
	DefaultEndOfScriptCountdown = 20 * time.Second
	DefaultServerEndedTimeout   = 5 * time.Second

	defaultReadBufferSize = 64 * 1024
	promptMarker          = ">"
)

// Config holds the socket server settings.
type Config struct {
	Host      string
	Port      int
	Delimiter string // Message delimiter on the wire
	ResultTag string // Log tag marking result lines

	EndOfScriptCountdown time.Duration // Delay before auto-close once a result was retrieved
	ServerEndedTimeout   time.Duration // Default wait for ServerHasEndedCallback

	IdleTimeout    time.Duration // Drop a harness that sends nothing for this long, 0 disables
	ReadBufferSize int
	Prompt         io.Writer // Receives the prompt marker when a connection closes
}

// DefaultConfig returns the settings the harness expects out of the box.
func DefaultConfig() Config {
	return Config{
		Host:                 DefaultHost,
		Port:                 DefaultPort,
		Delimiter:            framing.DefaultDelimiter,
		ResultTag:            classifier.DefaultTag,
		EndOfScriptCountdown: DefaultEndOfScriptCountdown,
		ServerEndedTimeout:   DefaultServerEndedTimeout,
		ReadBufferSize:       defaultReadBufferSize,
		Prompt:               os.Stdout,
	}
}

// Address returns the configured host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Delimiter == "" {
		c.Delimiter = d.Delimiter
	}
	if c.ResultTag == "" {
		c.ResultTag = d.ResultTag
	}
	if c.EndOfScriptCountdown <= 0 {
		c.EndOfScriptCountdown = d.EndOfScriptCountdown
	}
	if c.ServerEndedTimeout <= 0 {
		c.ServerEndedTimeout = d.ServerEndedTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.Prompt == nil {
		c.Prompt = io.Discard
	}
	return c
}
