// Package classifier detects test-result markers in harness messages.
package classifier

import (
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/SethEden/Hay-CAF/types"
)

const (
	// DefaultTag is the log tag the harness prefixes result lines with.
	DefaultTag = "TestResultsLog"

	// testPrefix must appear in a result line, e.g. "Test_42".
	testPrefix = "Test_"
)

// Classifier recognizes result lines of the form
// "<tag> ... Test_<name> ... PASS|WARNING|FAIL".
type Classifier struct {
	tag string
}

func New(tag string) *Classifier {
	if tag == "" {
		tag = DefaultTag
	}
	return &Classifier{tag: tag}
}

func (c *Classifier) Tag() string {
	return c.tag
}

// ContainsTestResult reports whether text is a result line.
func (c *Classifier) ContainsTestResult(text string) bool {
	if text == "" {
		return false
	}
	text = stripansi.Strip(text)
	if !strings.Contains(text, c.tag) || !strings.Contains(text, testPrefix) {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range types.ResultMarkers() {
		if strings.Contains(lower, string(marker)) {
			return true
		}
	}
	return false
}

// ExtractResult maps text to a result, checking pass, then warning, then
// fail. Text that matches none of them is treated as a failure.
func (c *Classifier) ExtractResult(text string) types.TestResult {
	lower := strings.ToLower(stripansi.Strip(text))
	for _, marker := range types.ResultMarkers() {
		if strings.Contains(lower, string(marker)) {
			return marker
		}
	}
	return types.TestResultFail
}

// ClassifyPayload returns the result carried by the first item of p that
// is a result line. Later items in the same payload are not examined.
func (c *Classifier) ClassifyPayload(p types.Payload) (types.TestResult, bool) {
	for _, item := range p.Items() {
		if c.ContainsTestResult(item.Message) {
			return c.ExtractResult(item.Message), true
		}
	}
	return types.TestResultNone, false
}
