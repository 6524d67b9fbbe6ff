// Package exitcodes defines the exit codes hay-caf reports to the shell.
package exitcodes

// Exit codes:
//
// * Success (0): the harness reported pass or warning
// * TestFailure (1): the harness reported fail, or ended without a result
// * RuntimeErr (2): runtime errors such as a result timeout or bad configuration
const (
	Success     = 0 // pass or warning
	TestFailure = 1 // fail
	RuntimeErr  = 2 // runtime errors or timeouts
)
