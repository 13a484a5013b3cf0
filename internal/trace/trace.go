// Package trace implements the ambient xtrace/var-diff logging concern
// described in SPEC_FULL.md: a buffered, line-oriented tracer wired
// behind ShellState.Flags' trace bit, adapted from the teacher's
// interp/trace.go tracer type (interp.Runner.tracer/call/flush).
//
// Unlike the teacher, which only ever prints a command line, this
// Tracer also supports a "var diff" mode: capture a variable's string
// form before and after a statement runs, and render a unified diff
// with github.com/pkg/diff when the value actually changed.
package trace

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/diff"
)

// Tracer buffers one line per traced construct and flushes it to the
// configured writer, mirroring the teacher's tracer.buf/flush pair. A
// nil *Tracer is valid and silently discards every call, the same way
// the teacher's tracer is nil whenever xtrace is off.
type Tracer struct {
	buf          bytes.Buffer
	w            io.Writer
	isFirstPrint bool
}

// New returns a Tracer writing to w. Pass a nil w to get a Tracer that
// discards everything, useful for tests that want Tracer's nil-safety
// exercised without nil-checking call sites themselves.
func New(w io.Writer) *Tracer {
	if w == nil {
		w = io.Discard
	}
	return &Tracer{w: w, isFirstPrint: true}
}

func (t *Tracer) string(s string) {
	if t == nil {
		return
	}
	if t.isFirstPrint {
		t.buf.WriteString("+ ")
		t.isFirstPrint = false
	}
	t.buf.WriteString(s)
}

func (t *Tracer) stringf(f string, a ...interface{}) {
	t.string(fmt.Sprintf(f, a...))
}

// Flush writes the buffered line (plus trailing newline) to the
// configured writer and resets state for the next line.
func (t *Tracer) Flush() {
	if t == nil {
		return
	}
	t.buf.WriteString("\n")
	t.w.Write(t.buf.Bytes())
	t.buf.Reset()
	t.isFirstPrint = true
}

// Pipeline traces one executed pipeline, formatted the way the
// teacher's tracer.call renders a CallExpr: the first command's argv
// joined with spaces, further stages separated by " | ".
func (t *Tracer) Pipeline(stages [][]string, status int) {
	if t == nil {
		return
	}
	parts := make([]string, len(stages))
	for i, args := range stages {
		parts[i] = strings.Join(args, " ")
	}
	t.stringf("%s (status %d)", strings.Join(parts, " | "), status)
	t.Flush()
}

// Assign traces a let/export assignment's name and new value.
func (t *Tracer) Assign(name, value string) {
	if t == nil {
		return
	}
	t.stringf("%s=%s", name, value)
	t.Flush()
}

// VarDiff renders a unified diff between before and after for name
// when they differ, using github.com/pkg/diff the way a reviewer
// would read `git diff` output for a single variable. The executor's
// for loop calls it with the loop variable's old and new value each
// time it binds the next element, so a trace consumer can see which
// iteration set the variable and to what.
func (t *Tracer) VarDiff(name, before, after string) {
	if t == nil || before == after {
		return
	}
	var buf bytes.Buffer
	_ = diff.Text(name+" (before)", name+" (after)", strings.NewReader(before+"\n"), strings.NewReader(after+"\n"), &buf)
	t.string(buf.String())
	t.Flush()
}
