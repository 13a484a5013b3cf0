// Package executor implements the StatementExecutor, ScopeGuard,
// SignalProbe, LoopExecutor, IfExecutor, MatchExecutor, and CommandEntry
// components from spec.md §2/§4: the recursive tree walker that drives
// a parsed Statement against a mutable ShellState. It is grounded on
// the teacher's interp.Runner (interp/runner.go, interp/api.go): a
// single struct owning mutable interpreter state, a recursive
// stmt/stmts dispatch pair, and a panic/recover idiom for "never
// returns" exits (the teacher's `case exit:` recover in Runner.Run),
// which this package reuses for errexit. A terminal signal is handled
// by SignalProbe calling ShellState.Exit directly.
package executor

import (
	"io"
	"os"
	"strconv"

	"github.com/yonasBSD/ion-shell/expand"
	"github.com/yonasBSD/ion-shell/internal/trace"
	"github.com/yonasBSD/ion-shell/parser"
	"github.com/yonasBSD/ion-shell/pipeline"
	"github.com/yonasBSD/ion-shell/signal"
	"github.com/yonasBSD/ion-shell/variables"
)

// Flags is the ShellState bitset from spec.md §3.
type Flags uint8

const (
	// FlagErrexit: any non-zero pipeline status aborts the process.
	FlagErrexit Flags = 1 << iota
	// FlagTrace requests xtrace-style logging of each executed pipeline
	// (internal/trace.Tracer), independent of errexit.
	FlagTrace
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// FatalExit is the panic payload StatementExecutor raises for a "never
// returns" exit: an errexit-triggered non-zero pipeline status (a
// terminal signal does not use it; SignalProbe calls Exit itself).
// CommandEntry (or any caller wrapping
// a top-level ShellState) recovers it and calls ShellState.Exit, the
// same panic/recover boundary the teacher's Runner.Run uses for its
// `exit` builtin.
type FatalExit struct{ Code int }

func (e FatalExit) Error() string { return "executor: fatal exit" }

// ShellState is the mutable interpreter state every executor component
// shares, matching spec.md §3 exactly: last_status, flags, the
// break_flow latch, the variable store, and the flow builder's opaque
// state (here a concrete *parser.FlowBuilder since this module supplies
// its own Parser/FlowBuilder implementation).
type ShellState struct {
	LastStatus int
	Flags      Flags
	breakFlow  bool

	// breakEnclosing/contnEnclosing hold the remaining unwind count for
	// a "break N"/"continue N" in flight (SPEC_FULL.md's enclosing-count
	// supplement to spec.md §3's Break/Continue), decremented by
	// LoopExecutor one enclosing loop at a time. Grounded on the
	// teacher's Runner.breakEnclosing/contnEnclosing counters.
	breakEnclosing int
	contnEnclosing int

	Vars     *variables.Store
	Flow     *parser.FlowBuilder
	Runner   pipeline.Runner
	Expander expand.Expander
	Signals  signal.Source

	// Trace is consulted only when Flags.Has(FlagTrace); NewState sets
	// it to a Tracer writing to os.Stderr, so dispatch never needs a nil
	// check.
	Trace *trace.Tracer

	Stdout io.Writer
	Stderr io.Writer

	// Exit terminates the process with the given code. Defaults to
	// os.Exit; tests substitute a function that records the code instead
	// of actually terminating the test binary.
	Exit func(code int)
}

// NewState constructs a ShellState with one base variable scope and
// sane defaults for every field a caller doesn't override afterward.
// It binds "?" in vars to this state's own LastStatus (P2: the two must
// agree after every status-changing statement, even across a pushed and
// popped ScopeGuard), so vars must not already be shared with another
// live ShellState.
func NewState(vars *variables.Store, runner pipeline.Runner, exp expand.Expander, sig signal.Source) *ShellState {
	s := &ShellState{
		Vars:     vars,
		Flow:     parser.NewFlowBuilder(),
		Runner:   runner,
		Expander: exp,
		Signals:  sig,
		Trace:    trace.New(os.Stderr),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Exit:     os.Exit,
	}
	vars.BindStatus(func() string { return strconv.Itoa(s.LastStatus) })
	return s
}

// SetBreakFlow latches the break_flow flag spec.md §3 describes,
// consulted by SignalProbe.After on the next statement boundary. Used
// by an external interrupt source (e.g. cmd/ionsh's prompt loop)
// outside of a running StatementExecutor.Execute call.
func (s *ShellState) SetBreakFlow() { s.breakFlow = true }

// ScopeGuard is the RAII-style scope acquisition from spec.md §2:
// pushing a new variable frame on construction and guaranteeing its pop
// on every exit path (the caller defers Close immediately after
// construction), satisfying invariant P1 even when a panic unwinds
// through it.
type ScopeGuard struct {
	store *variables.Store
}

// NewScopeGuard pushes a scope of the given kind and returns the guard
// that will pop it.
func NewScopeGuard(store *variables.Store, namespace bool) *ScopeGuard {
	store.NewScope(namespace)
	return &ScopeGuard{store: store}
}

// Close pops the scope this guard pushed. Safe, and required, to call
// exactly once per guard, including via defer across a panic.
func (g *ScopeGuard) Close() { g.store.PopScope() }

// storeEnviron adapts a *variables.Store to expand.Environ so the
// Expander can resolve "$name" references without this package handing
// out the Store itself (the Expander only ever needs read access).
type storeEnviron struct{ store *variables.Store }

func (e storeEnviron) Lookup(name string) (value string, isArray bool, array []string, ok bool) {
	v := e.store.Get(name)
	if !v.IsSet() {
		return "", false, nil, false
	}
	if v.Kind == variables.KindArray {
		return "", true, v.Array, true
	}
	return v.String(), false, nil, true
}
