// Command mush is the line-oriented driver that wires the vars, program,
// and jobs packages together. It has no lexer or parser of its own: a
// line is either a program-store edit, a variable assignment, a job
// command, or a pipeline split on '|' and whitespace. Quoting, globbing,
// and control flow belong to a future front end.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"

	"mush/ast"
	"mush/jobs"
	"mush/log"
	"mush/program"
	"mush/vars"
)

type dispatcher struct {
	vars    *vars.Store
	program *program.Store
	jobs    *jobs.Manager
	out     io.Writer
}

func newDispatcher(out io.Writer) *dispatcher {
	return &dispatcher{
		vars:    vars.NewStore(),
		program: program.NewStore(),
		jobs:    jobs.NewManager(),
		out:     out,
	}
}

func main() {
	opts, optind, err := getopt.Getopts(os.Args, "c:f:")
	if err != nil {
		log.CrashOnError = true
		log.Err("%s", err)
	}

	var command, file string
	for _, opt := range opts {
		switch opt.Option {
		case 'c':
			command = opt.Value
		case 'f':
			file = opt.Value
		}
	}

	d := newDispatcher(os.Stdout)
	if err := d.jobs.Init(); err != nil {
		log.CrashOnError = true
		log.Err("%s", err)
	}
	defer d.jobs.Fini()

	switch {
	case command != "":
		log.CrashOnError = true
		d.runLine(command)
	case file != "":
		f, ferr := os.Open(file)
		if ferr != nil {
			log.CrashOnError = true
			log.Err("%s", ferr)
		}
		defer f.Close()
		log.CrashOnError = true
		d.runReader(f)
	case len(os.Args[optind:]) > 0:
		f, ferr := os.Open(os.Args[optind])
		if ferr != nil {
			log.CrashOnError = true
			log.Err("%s", ferr)
		}
		defer f.Close()
		log.CrashOnError = true
		d.runReader(f)
	default:
		d.runReader(os.Stdin)
	}
}

func (d *dispatcher) runReader(r io.Reader) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		d.runLine(s.Text())
	}
}

func (d *dispatcher) runLine(line string) {
	line = strings.TrimRight(line, "\n")
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return
	case isLineEdit(trimmed):
		d.editProgram(trimmed)
	case isAssignment(trimmed):
		d.assignVar(trimmed)
	default:
		d.dispatchWord(trimmed)
	}
}

// isLineEdit reports whether line begins with a decimal line number, the
// form program.Insert consumes.
func isLineEdit(line string) bool {
	i := strings.IndexFunc(line, func(r rune) bool { return r < '0' || r > '9' })
	if i == 0 {
		return false
	}
	return true
}

func (d *dispatcher) editProgram(line string) {
	i := strings.IndexFunc(line, func(r rune) bool { return r < '0' || r > '9' })
	var numStr, text string
	if i < 0 {
		numStr, text = line, ""
	} else {
		numStr, text = line[:i], strings.TrimSpace(line[i:])
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		log.Err("%s", err)
		return
	}
	if text == "" {
		if err := d.program.Delete(n, n); err != nil {
			log.Err("%s", err)
		}
		return
	}
	if err := d.program.Insert(&ast.Stmt{Line: n, Text: text}); err != nil {
		log.Err("%s", err)
	}
}

// isAssignment reports whether line has the shape name=value or name=,
// where name contains no '=' and is non-empty.
func isAssignment(line string) bool {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return false
	}
	name := line[:eq]
	for _, r := range name {
		if r == ' ' || r == '\t' || r == '|' {
			return false
		}
	}
	return true
}

func (d *dispatcher) assignVar(line string) {
	eq := strings.IndexByte(line, '=')
	name, value := line[:eq], line[eq+1:]
	if value == "" {
		if err := d.vars.SetString(name, nil); err != nil {
			log.Err("%s", err)
		}
		return
	}
	if err := d.vars.SetString(name, &value); err != nil {
		log.Err("%s", err)
	}
}

func (d *dispatcher) dispatchWord(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "list":
		if err := d.program.List(d.out); err != nil {
			log.Err("%s", err)
		}
		return
	case "run":
		d.runProgram()
		return
	case "next":
		stmt := d.program.Next()
		if stmt != nil {
			d.runLine(stmt.Text)
		}
		return
	case "goto":
		if len(fields) != 2 {
			log.Err("goto: expected a line number")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			log.Err("%s", err)
			return
		}
		stmt := d.program.Goto(n)
		if stmt == nil {
			log.Err("goto: no such line %d", n)
		}
		return
	case "jobs":
		if err := d.jobs.Show(d.out); err != nil {
			log.Err("%s", err)
		}
		return
	case "wait", "poll", "cancel", "expunge", "output":
		d.jobCommand(fields)
		return
	}

	d.runPipeline(line)
}

func (d *dispatcher) runProgram() {
	d.program.Reset()
	stmt := d.program.Fetch()
	for stmt != nil {
		d.runLine(stmt.Text)
		stmt = d.program.Next()
	}
}

func (d *dispatcher) jobCommand(fields []string) {
	if len(fields) != 2 {
		log.Err("%s: expected a job id", fields[0])
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		log.Err("%s", err)
		return
	}

	switch fields[0] {
	case "wait":
		status, werr := d.jobs.Wait(id)
		if werr != nil {
			log.Err("%s", werr)
			return
		}
		fmt.Fprintln(d.out, status)
	case "poll":
		status, perr := d.jobs.Poll(id)
		if perr != nil {
			log.Err("%s", perr)
			return
		}
		fmt.Fprintln(d.out, status)
	case "cancel":
		if cerr := d.jobs.Cancel(id); cerr != nil {
			log.Err("%s", cerr)
		}
	case "expunge":
		if eerr := d.jobs.Expunge(id); eerr != nil {
			log.Err("%s", eerr)
		}
	case "output":
		out, ok := d.jobs.GetOutput(id)
		if !ok {
			log.Err("output: job %d has no captured output", id)
			return
		}
		d.out.Write(out)
	}
}

// runPipeline splits line on '|' and builds an ast.Pipeline with no
// quoting: each stage is split purely on whitespace into argv, matching
// the explicit non-goal carried over unchanged.
func (d *dispatcher) runPipeline(line string) {
	capture := false
	if strings.HasSuffix(line, "&capture") {
		capture = true
		line = strings.TrimSpace(strings.TrimSuffix(line, "&capture"))
	}

	stageTexts := strings.Split(line, "|")
	p := &ast.Pipeline{CaptureOutput: capture}

	for _, st := range stageTexts {
		fields := strings.Fields(st)
		if len(fields) == 0 {
			log.Err("pipeline: empty stage")
			return
		}
		var c ast.Command
		for _, f := range fields {
			c.Args = append(c.Args, ast.Literal(f))
		}
		p.Commands = append(p.Commands, c)
	}

	id, err := d.jobs.Run(p)
	if err != nil {
		log.Err("%s", err)
		return
	}
	fmt.Fprintln(d.out, id)
}
