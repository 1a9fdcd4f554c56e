package jobs

import (
	"os"

	"mush/ast"
)

// Job is one tracked pipeline, as described in spec.md §3's job record.
// Fields that change after Run are guarded by the owning Manager's mutex.
// captureFile, drainDone and done are set before the job's goroutines
// start and are never reassigned, so drain and supervise read them
// without the lock.
type Job struct {
	ID         int
	Pgid       int
	Status     Status
	ExitStatus ExitStatus
	Pipeline   *ast.Pipeline

	cancelRequested bool

	captureFile *os.File // read end; nil if the pipeline didn't request capture
	captured    []byte   // nil until the first byte is drained
	drainDone   chan struct{}

	done chan struct{} // closed exactly once, when Status becomes terminal
}
