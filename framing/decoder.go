// Package framing turns the raw byte stream sent by the test harness into
// discrete JSON payloads.
//
// The harness terminates every JSON value with a delimiter. TCP chunk
// boundaries are arbitrary, so a Decoder keeps the unterminated tail of the
// stream between calls. When a delimited segment is not valid JSON (the
// harness sometimes flushes two objects without a delimiter between them),
// the decoder falls back to recovering every flat {...} object it can find.
package framing

import (
	"bytes"
	"regexp"

	"github.com/ethereum/go-ethereum/log"

	"github.com/SethEden/Hay-CAF/metrics"
	"github.com/SethEden/Hay-CAF/types"
)

// DefaultDelimiter separates JSON values on the wire.
const DefaultDelimiter = "##END##"

const (
	sourceSegment  = "segment"
	sourceFragment = "fragment"
)

// fragmentRegex matches a brace pair that contains no nested braces.
var fragmentRegex = regexp.MustCompile(`\{[^{}]*\}`)

// Decoder splits a byte stream into JSON payloads. A Decoder owns the
// carry-over buffer for exactly one connection and is not safe for
// concurrent use.
type Decoder struct {
	delimiter []byte
	buffer    []byte
	log       log.Logger
}

// NewDecoder creates a decoder for the given delimiter. An empty delimiter
// selects DefaultDelimiter.
func NewDecoder(delimiter string, logger log.Logger) *Decoder {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if logger == nil {
		logger = log.New()
	}
	return &Decoder{
		delimiter: []byte(delimiter),
		log:       logger,
	}
}

// Delimiter returns the delimiter the decoder splits on.
func (d *Decoder) Delimiter() string {
	return string(d.delimiter)
}

// Buffered returns a copy of the unconsumed tail.
func (d *Decoder) Buffered() []byte {
	return bytes.Clone(d.buffer)
}

// Reset drops any buffered bytes.
func (d *Decoder) Reset() {
	d.buffer = nil
}

// Decode appends chunk to the carry-over buffer and returns every payload
// that could be parsed from the complete segments. The final, unterminated
// segment always becomes the new buffer, whether or not it parses.
// Decode never fails; malformed input is logged and skipped.
func (d *Decoder) Decode(chunk []byte) []types.Payload {
	if len(chunk) == 0 {
		return nil
	}

	stream := make([]byte, 0, len(d.buffer)+len(chunk))
	stream = append(stream, d.buffer...)
	stream = append(stream, chunk...)

	segments := bytes.Split(stream, d.delimiter)
	d.buffer = bytes.Clone(segments[len(segments)-1])
	d.log.Trace("Split chunk into segments", "complete", len(segments)-1, "buffered", len(d.buffer))

	var payloads []types.Payload
	for i, segment := range segments[:len(segments)-1] {
		segment = bytes.TrimSpace(segment)
		if len(segment) == 0 {
			continue
		}

		payload, err := types.ParsePayload(segment)
		if err == nil {
			metrics.RecordPayload(sourceSegment)
			payloads = append(payloads, payload)
			continue
		}

		d.log.Warn("JSON parse error, attempting fragment extraction", "segment", i, "err", err, "content", string(segment))
		payloads = append(payloads, d.extractFragments(segment)...)
	}
	return payloads
}

// extractFragments recovers flat JSON objects from a malformed segment.
func (d *Decoder) extractFragments(segment []byte) []types.Payload {
	var payloads []types.Payload
	for _, match := range fragmentRegex.FindAll(segment, -1) {
		payload, err := types.ParsePayload(match)
		if err != nil {
			d.log.Warn("Skipping unparsable JSON fragment", "fragment", string(match), "err", err)
			metrics.RecordFragmentDropped()
			continue
		}
		metrics.RecordPayload(sourceFragment)
		payloads = append(payloads, payload)
	}
	d.log.Debug("Fragment extraction finished", "recovered", len(payloads))
	return payloads
}
