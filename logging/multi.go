package logging

import "github.com/SethEden/Hay-CAF/types"

// Sink is the output surface shared by every sink in this package.
type Sink interface {
	Message(sessionID string, msg types.Message)
	Announce(line string)
}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Message(sessionID string, msg types.Message) {
	for _, s := range m {
		s.Message(sessionID, msg)
	}
}

func (m MultiSink) Announce(line string) {
	for _, s := range m {
		s.Announce(line)
	}
}
