package haycaf

import (
	"fmt"
	"time"

	"github.com/SethEden/Hay-CAF/types"
)

// RunResult is the outcome of one harness session.
type RunResult struct {
	RunID     string
	SessionID string
	Result    types.TestResult
	Duration  time.Duration
	// HarnessEnded is set when the harness disconnected in time after its
	// result was retrieved.
	HarnessEnded bool
	Err          error
}

func (r *RunResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("run %s: %s (%v)", r.RunID, r.Result, r.Err)
	}
	return fmt.Sprintf("run %s: %s in %s", r.RunID, r.Result, formatDuration(r.Duration))
}

// Failed reports whether the run should count as a failure.
func (r *RunResult) Failed() bool {
	return r.Err != nil || r.Result.OrFail() == types.TestResultFail
}
