package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/SethEden/Hay-CAF/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "haycaf"
)

var (
	Debug                bool = true
	validResults              = []types.TestResult{types.TestResultPass, types.TestResultWarning, types.TestResultFail}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "connections_total",
		Help:      "Count of accepted harness connections",
	})

	connected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "connected",
		Help:      "1 while a harness connection is open",
	})

	chunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "chunks_total",
		Help:      "Count of raw chunks received",
	})

	chunkBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "chunk_bytes_total",
		Help:      "Count of raw bytes received",
	})

	payloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "payloads_total",
		Help:      "Count of decoded JSON payloads",
	}, []string{
		"source",
	})

	fragmentsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "fragments_dropped_total",
		Help:      "Count of brace-matched fragments that still failed to parse",
	})

	testResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "test_results_total",
		Help:      "Count of test results captured from harness messages",
	}, []string{
		"result",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of orchestrated test runs",
	}, []string{
		"session_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of orchestrated test runs",
	}, []string{
		"session_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordConnection() {
	connectionsTotal.Inc()
	connected.Set(1)
}

func RecordDisconnection() {
	connected.Set(0)
}

func RecordChunk(size int) {
	chunksTotal.Inc()
	chunkBytesTotal.Add(float64(size))
}

// RecordPayload counts a decoded payload. source is "segment" for a cleanly
// delimited value and "fragment" for one recovered by brace matching.
func RecordPayload(source string) {
	payloadsTotal.WithLabelValues(source).Inc()
}

func RecordFragmentDropped() {
	fragmentsDroppedTotal.Inc()
}

func RecordTestResult(result types.TestResult) {
	if !isValidResult(result) {
		log.Error("RecordTestResult - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "test_results_total",
			"result", result)
	}
	testResultsTotal.WithLabelValues(string(result)).Inc()
}

func RecordRun(sessionID string, result types.TestResult, duration time.Duration) {
	runResults.WithLabelValues(sessionID, result.String()).Set(1)
	runDuration.WithLabelValues(sessionID).Set(duration.Seconds())
}

func isValidResult(result types.TestResult) bool {
	return slices.Contains(validResults, result)
}
