package haycaf

import (
	"github.com/SethEden/Hay-CAF/metrics"
)

// MetricsReporter is responsible for reporting metrics from run results.
type MetricsReporter interface {
	ReportResults(result *RunResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the run result to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(result *RunResult) {
	if result.Err != nil {
		metrics.RecordErrorDetails("run", result.Err)
	}
	metrics.RecordRun(result.SessionID, result.Result.OrFail(), result.Duration)
}
