package sockets

import "github.com/SethEden/Hay-CAF/types"

// Sink receives the operator-facing output of the server: every drained
// harness message and every lifecycle announcement.
type Sink interface {
	Message(sessionID string, msg types.Message)
	Announce(line string)
}

type nopSink struct{}

func (nopSink) Message(string, types.Message) {}
func (nopSink) Announce(string)               {}

// Operator announcements.
const (
	announceListening        = "Listening..."
	announceConnected        = "Server connected"
	announceEnded            = "Server connection has ended!"
	announceReset            = "ECONNRESET!!!!"
	announcePremature        = "Test failed prematurely!"
	announceCountdownExpired = "Closing...Timeout reached for end of script!"
	announceDisconnecting    = "Disconnecting gracefully"
	announceCallbackStart    = "Calling serverHasEndedCallback!!"
	announceCallbackTimeout  = "Test has failed, nothing happened in the allotted time!"
)
