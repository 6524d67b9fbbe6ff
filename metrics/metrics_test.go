package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/SethEden/Hay-CAF/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("read tcp 127.0.0.1:3000: connection reset"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordTestResult(t *testing.T) {
	before := testutil.ToFloat64(testResultsTotal.WithLabelValues("pass"))
	RecordTestResult(types.TestResultPass)
	assert.Equal(t, before+1, testutil.ToFloat64(testResultsTotal.WithLabelValues("pass")))

	// unset results are rejected rather than creating an empty label
	RecordTestResult(types.TestResultNone)
	assert.Equal(t, 0.0, testutil.ToFloat64(testResultsTotal.WithLabelValues("")))
}

func TestRecordConnection(t *testing.T) {
	RecordConnection()
	assert.Equal(t, 1.0, testutil.ToFloat64(connected))
	RecordDisconnection()
	assert.Equal(t, 0.0, testutil.ToFloat64(connected))
}

func TestRecordChunkAndPayloads(t *testing.T) {
	before := testutil.ToFloat64(chunkBytesTotal)
	RecordChunk(10)
	assert.Equal(t, before+10, testutil.ToFloat64(chunkBytesTotal))

	RecordPayload("segment")
	RecordPayload("fragment")
	RecordFragmentDropped()
}

func TestRecordRun(t *testing.T) {
	RecordRun("session-1", types.TestResultPass, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(runResults.WithLabelValues("session-1", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(runDuration.WithLabelValues("session-1")))
}
