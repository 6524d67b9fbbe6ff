package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	MessageField   = "message"
	TimestampField = "timestamp"
)

// Message is a single JSON object sent by the test harness.
// Only the message and timestamp fields are interpreted, every other
// field is kept as-is so the object round-trips unchanged.
type Message struct {
	Message   string
	Timestamp string
	Fields    map[string]json.RawMessage
}

// HasMessage reports whether the object carried a non-empty message field.
func (m Message) HasMessage() bool {
	return m.Message != ""
}

// LogLine renders the message the way it is echoed to the operator.
func (m Message) LogLine() string {
	if m.Timestamp == "" {
		return m.Message
	}
	return fmt.Sprintf("%s: %s", m.Timestamp, m.Message)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("message is not a JSON object")
	}
	*m = Message{Fields: fields}
	m.Message = stringField(fields, MessageField)
	m.Timestamp = stringField(fields, TimestampField)
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	if m.Fields != nil {
		return json.Marshal(m.Fields)
	}
	out := make(map[string]string, 2)
	if m.Message != "" {
		out[MessageField] = m.Message
	}
	if m.Timestamp != "" {
		out[TimestampField] = m.Timestamp
	}
	return json.Marshal(out)
}

// stringField returns the named field when it holds a JSON string.
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// PayloadKind tags the shape of a decoded JSON value.
type PayloadKind int

const (
	PayloadOther PayloadKind = iota
	PayloadObject
	PayloadArray
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadObject:
		return "object"
	case PayloadArray:
		return "array"
	default:
		return "other"
	}
}

// Payload is one JSON value taken off the wire. The harness sends either
// a single object or an array of objects; both are exposed through Items.
type Payload struct {
	Kind PayloadKind
	Raw  json.RawMessage

	items []Message
	// every array element was an object carrying a message
	allMessages bool
}

// ParsePayload strictly parses data as exactly one JSON value.
func ParsePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Payload{}, fmt.Errorf("invalid JSON value")
	}
	p := Payload{Raw: append(json.RawMessage(nil), trimmed...)}

	switch trimmed[0] {
	case '{':
		var m Message
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return Payload{}, fmt.Errorf("decoding object: %w", err)
		}
		p.Kind = PayloadObject
		p.items = []Message{m}
		p.allMessages = m.HasMessage()
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return Payload{}, fmt.Errorf("decoding array: %w", err)
		}
		p.Kind = PayloadArray
		p.allMessages = true
		for _, elem := range elems {
			var m Message
			if err := json.Unmarshal(elem, &m); err != nil {
				// non-object elements carry no message
				p.allMessages = false
				continue
			}
			if !m.HasMessage() {
				p.allMessages = false
			}
			p.items = append(p.items, m)
		}
	default:
		p.Kind = PayloadOther
	}
	return p, nil
}

// NewObjectPayload wraps a single message as an object payload.
func NewObjectPayload(m Message) Payload {
	raw, _ := json.Marshal(m)
	return Payload{Kind: PayloadObject, Raw: raw, items: []Message{m}, allMessages: m.HasMessage()}
}

// Items returns the normalized sequence-of-objects view of the payload.
func (p Payload) Items() []Message {
	return p.items
}

// HasMessage reports whether the payload should be queued for the operator
// log: an object with a message, or an array whose elements all carry one.
func (p Payload) HasMessage() bool {
	return len(p.items) > 0 && p.allMessages
}
