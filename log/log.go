package log

import (
	"errors"
	"fmt"
	"os"

	"mush/jobs"
)

// CrashOnError selects whether Err behaves like warnx(3) (keep going --
// the default, for the interactive REPL) or errx(3) (abort the process --
// set by the dispatcher once it's reading a batch script or a -c
// command).
var CrashOnError = false

// Err prints a diagnostic to standard error, prefixed with the program
// name, and exits the process if CrashOnError is set. It also exits
// unconditionally, regardless of CrashOnError, when one of args is a
// *jobs.OSError: a REPL that keeps accepting lines after the operating
// system itself failed a job's fork/exec/pipe/open call has no
// consistent job table left to keep serving, so that class of failure
// is always fatal rather than merely warned about.
func Err(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "mush: "+format+"\n", args...)

	if CrashOnError || anyOSError(args) {
		os.Exit(1)
	}
}

func anyOSError(args []any) bool {
	for _, a := range args {
		err, ok := a.(error)
		if !ok {
			continue
		}
		var oserr *jobs.OSError
		if errors.As(err, &oserr) {
			return true
		}
	}
	return false
}
