package jobs

import (
	"fmt"
	"os/exec"
	"syscall"
)

// ExitStatus is the Go-native stand-in for the raw wait status spec.md's
// job record stores verbatim: enough information to tell normal exit from
// signal death without forcing callers to poke at syscall.WaitStatus
// themselves.
type ExitStatus struct {
	Exited   bool
	Code     int
	Signaled bool
	Signal   syscall.Signal
}

// Success reports whether the status represents a normal, zero exit.
func (e ExitStatus) Success() bool {
	return e.Exited && e.Code == 0
}

func (e ExitStatus) String() string {
	switch {
	case e.Signaled:
		return fmt.Sprintf("signal %s", e.Signal)
	case e.Exited:
		return fmt.Sprintf("exit %d", e.Code)
	default:
		return "unknown"
	}
}

// failureStatus is the synthetic status reported for a pipeline whose
// leader stage aggregation fails for a reason that isn't itself a plain
// nonzero exit (e.g. an earlier stage in the pipeline failed) — see
// aggregateStatus.
var failureStatus = ExitStatus{Exited: true, Code: 1}

// waitStageStatus turns the error returned by (*exec.Cmd).Wait into an
// ExitStatus. It dispatches on WIFSIGNALED/WIFEXITED before ever reading
// the raw exit code, which is spec.md Open Question 1's resolution: the
// reference reads WEXITSTATUS first and can misclassify a signaled child
// whose signal number aliases a meaningful exit byte.
func waitStageStatus(cmd *exec.Cmd, waitErr error) ExitStatus {
	if waitErr == nil {
		return ExitStatus{Exited: true, Code: 0}
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		// Not even an ExitError: the process never ran, or some other
		// plumbing failure occurred. Treat as an abnormal termination.
		return ExitStatus{Signaled: true, Signal: syscall.SIGABRT}
	}

	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitStatus{Exited: true, Code: exitErr.ExitCode()}
	}

	if ws.Signaled() {
		return ExitStatus{Signaled: true, Signal: ws.Signal()}
	}
	return ExitStatus{Exited: true, Code: ws.ExitStatus()}
}

// aggregateStatus resolves spec.md Open Question 2: the pipeline's
// logical exit status is the last stage's status, provided every earlier
// stage succeeded; otherwise it is a synthetic failure rather than
// whatever status the reap loop last happened to see.
func aggregateStatus(results []ExitStatus) ExitStatus {
	n := len(results)
	for _, r := range results[:n-1] {
		if !r.Success() {
			return failureStatus
		}
	}
	return results[n-1]
}

// classify maps a pipeline's aggregate exit status to a job Status. Per
// spec.md §4.3.1, any death by SIGKILL is classified Canceled regardless
// of whether Cancel was actually called on this job — the reference
// behavior the spec explicitly permits reproducing.
func classify(final ExitStatus) Status {
	switch {
	case final.Signaled && final.Signal == syscall.SIGKILL:
		return StatusCanceled
	case final.Signaled:
		return StatusAborted
	case final.Exited && final.Code == 0:
		return StatusCompleted
	default:
		return StatusAborted
	}
}
