package types

import "strings"

// TestResult is the outcome reported by the test harness.
// The zero value means no result has been captured yet.
type TestResult string

const (
	TestResultNone    TestResult = ""
	TestResultPass    TestResult = "pass"
	TestResultWarning TestResult = "warning"
	TestResultFail    TestResult = "fail"
)

// resultPriority is the order in which markers are looked for in a message.
var resultPriority = []TestResult{TestResultPass, TestResultWarning, TestResultFail}

// ResultMarkers returns the recognized result markers in priority order.
func ResultMarkers() []TestResult {
	out := make([]TestResult, len(resultPriority))
	copy(out, resultPriority)
	return out
}

// IsSet reports whether a result has been captured.
func (r TestResult) IsSet() bool {
	return r != TestResultNone
}

// IsValid reports whether r is one of the recognized markers.
func (r TestResult) IsValid() bool {
	switch r {
	case TestResultPass, TestResultWarning, TestResultFail:
		return true
	}
	return false
}

// OrFail returns r, or TestResultFail when nothing was captured.
func (r TestResult) OrFail() TestResult {
	if !r.IsSet() {
		return TestResultFail
	}
	return r
}

func (r TestResult) String() string {
	if !r.IsSet() {
		return "none"
	}
	return string(r)
}

// ParseTestResult converts a marker string (any case) into a TestResult.
func ParseTestResult(s string) (TestResult, bool) {
	r := TestResult(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return TestResultNone, false
	}
	return r, true
}
