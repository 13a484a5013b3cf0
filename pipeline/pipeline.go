// Package pipeline implements the PipelineRunner external collaborator
// from spec.md §6: forking and connecting the commands of one pipeline
// and reporting its final exit status. The statement executor never
// looks inside a Pipeline; it only calls Runner.RunPipeline and reads
// back the status.
package pipeline

import (
	"context"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/yonasBSD/ion-shell/expand"
)

// Redirect describes one "> file", ">> file", or "< file" attached to a
// Command.
type Redirect struct {
	FD       int // 0, 1, or 2
	Op       RedirectOp
	Filename string
}

// RedirectOp identifies the kind of redirection.
type RedirectOp uint8

const (
	RedirOut RedirectOp = iota
	RedirAppend
	RedirIn
)

// Command is a single program invocation with its argument vector as
// written; DefaultRunner expands it when given an Expander and Environ.
type Command struct {
	Args    []string
	Redirs  []Redirect
	Environ []string // extra "NAME=value" entries layered onto the runner's environment
}

// Pipeline is one or more Commands connected by pipes, exactly as
// spec.md's GLOSSARY defines it. A Pipeline is immutable once built, so
// that LoopExecutor's "clone the condition pipeline before each
// iteration" requirement (spec.md §4.4) is a cheap value copy.
type Pipeline struct {
	Commands []Command
	Negated  bool // "! cmd": invert the final status 0<->non-zero
}

// Clone returns a Pipeline safe to run again; Commands is copied so a
// Runner implementation that mutates its Redirs/Args slices in place
// (none of ours do, but the contract promises it) cannot corrupt the
// original used by the next loop iteration.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	cmds := make([]Command, len(p.Commands))
	for i, c := range p.Commands {
		cmds[i] = Command{
			Args:    append([]string(nil), c.Args...),
			Redirs:  append([]Redirect(nil), c.Redirs...),
			Environ: append([]string(nil), c.Environ...),
		}
	}
	return &Pipeline{Commands: cmds, Negated: p.Negated}
}

// Runner is the PipelineRunner collaborator. RunPipeline mutates no
// shared state directly; its return value is what the executor uses to
// update ShellState.LastStatus. A nil status (the second return value
// false) means the pipeline could not be run at all (spec.md §7,
// "internal pipeline failure"), which the executor treats as
// non-success for If/While/And/Or purposes.
type Runner interface {
	RunPipeline(ctx context.Context, p *Pipeline) (status int, ok bool)
}

// DefaultRunner executes each Command with os/exec, connecting adjacent
// stages with io.Pipe, the way the teacher's interp/runner.go handles
// syntax.Pipe/PipeAll: one goroutine per stage, waited on with a group.
// Unlike the teacher's manual sync.WaitGroup, stage errors are collected
// with golang.org/x/sync/errgroup, a direct teacher dependency.
type DefaultRunner struct {
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Expander/Environ, when both set, expand each Command's Args and
	// Redirect filenames before exec, the way the teacher's runner.go
	// calls expand.Fields on a syntax.CallExpr's words before building
	// its argv. Left nil, Args are used as literal argv entries, which
	// is sufficient for callers that already expand arguments themselves
	// (e.g. a builtin dispatcher) before constructing the Pipeline.
	Expander expand.Expander
	Environ  expand.Environ
}

func (d *DefaultRunner) RunPipeline(ctx context.Context, p *Pipeline) (int, bool) {
	if p == nil || len(p.Commands) == 0 {
		return 0, true
	}

	stdout := d.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := d.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	n := len(p.Commands)
	cmds := make([]*exec.Cmd, n)
	var prevOut io.ReadCloser
	var closers []io.Closer
	for i, c := range p.Commands {
		args, err := d.expandArgs(c.Args)
		if err != nil || len(args) == 0 {
			return 1, false
		}
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Dir = d.Dir
		cmd.Env = append(os.Environ(), c.Environ...)
		cmd.Stderr = stderr

		if i == 0 {
			if d.Stdin != nil {
				cmd.Stdin = d.Stdin
			}
		} else {
			cmd.Stdin = prevOut
		}
		if i == n-1 {
			cmd.Stdout = stdout
		} else {
			pr, pw := io.Pipe()
			cmd.Stdout = pw
			prevOut = pr
			closers = append(closers, pw)
		}
		redirs, err := d.expandRedirects(c.Redirs)
		if err != nil {
			return 1, false
		}
		if err := applyRedirects(cmd, redirs); err != nil {
			return 1, false
		}
		cmds[i] = cmd
	}

	var g errgroup.Group
	for i, cmd := range cmds {
		i, cmd := i, cmd
		g.Go(func() error {
			err := cmd.Run()
			if i < len(closers) {
				closers[i].Close()
			}
			return err
		})
	}
	err := g.Wait()

	status := 0
	if err != nil {
		status = exitCodeOf(err)
	} else {
		status = cmds[n-1].ProcessState.ExitCode()
	}
	if p.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status, true
}

// expandArgs expands every word of a command's argv through Expander,
// flattening array/glob results into the argv the way a real shell
// does; with no Expander configured, args are used as literal argv
// entries unchanged.
func (d *DefaultRunner) expandArgs(args []string) ([]string, error) {
	if d.Expander == nil || d.Environ == nil {
		return args, nil
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		fields, err := d.Expander.ExpandString(a, d.Environ, true)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// expandRedirects returns a copy of redirs with each Filename expanded,
// never mutating the caller's Redirect slice (which may be shared
// across loop iterations via a cloned Pipeline's unexpanded template).
func (d *DefaultRunner) expandRedirects(redirs []Redirect) ([]Redirect, error) {
	if d.Expander == nil || d.Environ == nil || len(redirs) == 0 {
		return redirs, nil
	}
	out := make([]Redirect, len(redirs))
	for i, r := range redirs {
		fields, err := d.Expander.ExpandString(r.Filename, d.Environ, false)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			r.Filename = fields[0]
		}
		out[i] = r
	}
	return out, nil
}

func exitCodeOf(err error) int {
	var ee *exec.ExitError
	if as(err, &ee) {
		return ee.ExitCode()
	}
	return 1
}

// as is a tiny errors.As-like helper (a direct type assertion, with no
// unwrapping) kept local to avoid importing errors for one call site.
func as(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

func applyRedirects(cmd *exec.Cmd, redirs []Redirect) error {
	for _, r := range redirs {
		switch r.Op {
		case RedirOut, RedirAppend:
			flags := os.O_WRONLY | os.O_CREATE
			if r.Op == RedirAppend {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(r.Filename, flags, 0o644)
			if err != nil {
				return err
			}
			switch r.FD {
			case 2:
				cmd.Stderr = f
			default:
				cmd.Stdout = f
			}
		case RedirIn:
			f, err := os.Open(r.Filename)
			if err != nil {
				return err
			}
			cmd.Stdin = f
		}
	}
	return nil
}
