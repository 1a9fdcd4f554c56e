// Package ast holds the minimal pipeline and statement model shared by the
// program and jobs packages, plus the handful of collaborator
// contracts (eval_to_string, show_pipeline, show_stmt) that a real
// lexer/parser/evaluator would otherwise provide. Argument expansion,
// quoting, and redirection syntax belong to that future front end, not
// here — see Expr.
package ast

import (
	"fmt"
	"io"
)

// Expr is the eval_to_string collaborator: anything that can be evaluated
// down to the bytes an argv entry should contain. A real interpreter would
// have Expr implementations for variable expansion, command substitution,
// and string interpolation; Literal is the only one the core itself needs.
type Expr interface {
	Eval() ([]byte, error)
}

// Literal is a constant argument, already fully expanded.
type Literal string

func (l Literal) Eval() ([]byte, error) { return []byte(l), nil }

// Command is a single pipeline stage: a program name plus arguments, all
// expressed as Exprs so that argument expansion can be deferred until the
// job manager actually launches the stage.
type Command struct {
	Args []Expr
}

// Pipeline is an ordered list of commands whose standard streams chain
// together, plus the three attributes spec.md's launch protocol consults:
// an optional input file for the first stage, an optional output file for
// the last stage, and whether the last stage's output should instead be
// captured back into the job record.
type Pipeline struct {
	Commands      []Command
	InputFile     string // "" means none
	OutputFile    string // "" means none
	CaptureOutput bool
}

// Clone deep-copies a pipeline. This is the copy_pipeline collaborator:
// jobs.Run takes its own copy so that the caller's pipeline object can be
// freely mutated or discarded after Run returns, matching spec.md's
// ownership note in §4.3.3 step 7 and §5's "pipelines are deep-copied on
// run". There is no free_pipeline counterpart — once nothing references
// the clone (after Expunge drops it), the garbage collector reclaims it.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	cp := &Pipeline{
		Commands:      make([]Command, len(p.Commands)),
		InputFile:     p.InputFile,
		OutputFile:    p.OutputFile,
		CaptureOutput: p.CaptureOutput,
	}
	for i, c := range p.Commands {
		cp.Commands[i] = Command{Args: append([]Expr(nil), c.Args...)}
	}
	return cp
}

// ShowPipeline renders a pipeline for debug/listing output: the
// show_pipeline collaborator. Literal arguments print as-is; a non-Literal
// Expr prints its Go type, since by construction the core never evaluates
// an Expr purely to print it.
func ShowPipeline(w io.Writer, p *Pipeline) {
	if p == nil {
		return
	}
	for i, c := range p.Commands {
		if i > 0 {
			fmt.Fprint(w, " | ")
		}
		for j, a := range c.Args {
			if j > 0 {
				fmt.Fprint(w, " ")
			}
			if lit, ok := a.(Literal); ok {
				fmt.Fprint(w, string(lit))
			} else {
				fmt.Fprintf(w, "%T", a)
			}
		}
	}
	if p.InputFile != "" {
		fmt.Fprintf(w, " <%s", p.InputFile)
	}
	if p.OutputFile != "" {
		fmt.Fprintf(w, " >%s", p.OutputFile)
	}
	if p.CaptureOutput {
		fmt.Fprint(w, " &capture")
	}
}

// Stmt is the opaque statement object the program store holds. The core
// never inspects anything beyond LineNo; Text exists only so that
// ShowStmt has something real to render and so cmd/mush's batch mode has
// something to re-run.
type Stmt struct {
	Line int
	Text string
}

func (s *Stmt) LineNo() int { return s.Line }

// ShowStmt renders a statement for listing output: the show_stmt
// collaborator.
func ShowStmt(w io.Writer, s *Stmt) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "%d %s\n", s.Line, s.Text)
}
