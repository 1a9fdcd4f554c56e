package jobs

import (
	"os"
	"os/exec"
	"syscall"

	"mush/ast"
)

func evalArgs(args []ast.Expr) ([]string, error) {
	argv := make([]string, len(args))
	for i, a := range args {
		b, err := a.Eval()
		if err != nil {
			return nil, &OSError{Op: "eval", Err: err}
		}
		argv[i] = string(b)
	}
	return argv, nil
}

// launch runs spec.md §4.3.3's launch protocol. There is no separate
// "leader" OS process as in the C original: the Go process itself plays
// that role, directly exec'ing every stage as its own child and placing
// the first stage's pid as the process group id that every later stage
// joins (syscall.SysProcAttr{Setpgid: true, Pgid: ...}), in the style
// grounded on other_examples/michaelmacinnis-oh's job-control task
// execution. Each returned *exec.Cmd has already been started; the
// caller is responsible for reaping it via Wait.
func launch(p *ast.Pipeline) (stages []*exec.Cmd, pgid int, capture *os.File, err error) {
	n := len(p.Commands)
	stages = make([]*exec.Cmd, 0, n)

	var started []*exec.Cmd
	var nextStdin *os.File // read end of the pipe feeding the next stage

	abort := func(e error) ([]*exec.Cmd, int, *os.File, error) {
		if pgid > 0 {
			syscall.Kill(-pgid, syscall.SIGKILL)
		}
		for _, cmd := range started {
			cmd.Wait()
		}
		if nextStdin != nil {
			nextStdin.Close()
		}
		if capture != nil {
			capture.Close()
			capture = nil
		}
		return nil, 0, nil, e
	}

	for i, c := range p.Commands {
		argv, everr := evalArgs(c.Args)
		if everr != nil {
			return abort(everr)
		}
		if len(argv) == 0 {
			return abort(&ArgError{Reason: "command with no arguments"})
		}

		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stderr = os.Stderr

		// Files the parent opened for this stage alone, and must close
		// once this stage has started and has its own dup'd copy.
		var ownFiles []*os.File

		switch {
		case i == 0 && p.InputFile != "":
			f, oerr := os.Open(p.InputFile)
			if oerr != nil {
				return abort(&OSError{Op: "open", Err: oerr})
			}
			cmd.Stdin = f
			ownFiles = append(ownFiles, f)
		case i == 0:
			cmd.Stdin = os.Stdin
		default:
			cmd.Stdin = nextStdin
			ownFiles = append(ownFiles, nextStdin)
			nextStdin = nil
		}

		last := i == n-1
		var pipeR *os.File
		switch {
		case last && p.OutputFile != "":
			f, oerr := os.Create(p.OutputFile)
			if oerr != nil {
				return abort(&OSError{Op: "create", Err: oerr})
			}
			cmd.Stdout = f
			ownFiles = append(ownFiles, f)
		case last && p.CaptureOutput:
			cr, cw, perr := os.Pipe()
			if perr != nil {
				return abort(&OSError{Op: "pipe", Err: perr})
			}
			cmd.Stdout = cw
			capture = cr
			ownFiles = append(ownFiles, cw)
		case last:
			cmd.Stdout = os.Stdout
		default:
			r, w, perr := os.Pipe()
			if perr != nil {
				return abort(&OSError{Op: "pipe", Err: perr})
			}
			cmd.Stdout = w
			pipeR = r
			ownFiles = append(ownFiles, w)
		}

		if i == 0 {
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		} else {
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		}

		if serr := cmd.Start(); serr != nil {
			for _, f := range ownFiles {
				f.Close()
			}
			if pipeR != nil {
				pipeR.Close()
			}
			return abort(&OSError{Op: "start", Err: serr})
		}

		started = append(started, cmd)
		stages = append(stages, cmd)

		if i == 0 {
			pgid = cmd.Process.Pid
		}

		// The child has its own duplicated copy of every fd we handed
		// it; the parent's copy must be closed so readers downstream
		// see EOF once the pipeline's own processes are done with it.
		for _, f := range ownFiles {
			f.Close()
		}
		nextStdin = pipeR
	}

	return stages, pgid, capture, nil
}
