package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yonasBSD/ion-shell/ast"
	"github.com/yonasBSD/ion-shell/condition"
	"github.com/yonasBSD/ion-shell/pipeline"
	"github.com/yonasBSD/ion-shell/variables"
)

// StatementExecutor is the 45%-share component from spec.md §2: it
// dispatches one Statement and recurses through compound forms.
type StatementExecutor struct {
	State *ShellState
	Probe *SignalProbe
}

// New returns a StatementExecutor wired to state, with a SignalProbe
// built from state's own signal source and Exit function.
func New(state *ShellState) *StatementExecutor {
	return &StatementExecutor{State: state, Probe: NewSignalProbe(state.Signals, state.Exit)}
}

// setStatus is the single place last_status changes. Invariant P2
// (last_status and variable "?" agree after every statement that alters
// status, even across a pushed and popped ScopeGuard) holds because
// NewState binds "?" in the Store directly to this field rather than
// having this method write a snapshot into whatever scope happens to be
// innermost.
func (e *StatementExecutor) setStatus(n int) {
	e.State.LastStatus = n
}

func (e *StatementExecutor) environ() storeEnviron { return storeEnviron{e.State.Vars} }

// Execute implements spec.md §4.1's execute_statement(stmt) -> Condition
// contract: dispatch on the tag, then consult SignalProbe before
// returning.
func (e *StatementExecutor) Execute(ctx context.Context, stmt *ast.Statement) condition.Condition {
	cond := e.dispatch(ctx, stmt)
	return e.Probe.After(cond, &e.State.breakFlow)
}

// ExecuteBlock is execute_statements(list) from spec.md §4.2: a new
// non-namespace scope, statements run in order, the first non-NoOp
// condition stops the block, the scope is popped on every exit path.
func (e *StatementExecutor) ExecuteBlock(ctx context.Context, stmts []ast.Statement) condition.Condition {
	guard := NewScopeGuard(e.State.Vars, false)
	defer guard.Close()

	for i := range stmts {
		if cond := e.Execute(ctx, &stmts[i]); cond != condition.NoOp {
			return cond
		}
	}
	return condition.NoOp
}

func (e *StatementExecutor) dispatch(ctx context.Context, stmt *ast.Statement) condition.Condition {
	switch stmt.Kind {
	case ast.KindError:
		e.setStatus(stmt.ErrorCode)
		return condition.NoOp

	case ast.KindLet:
		e.setStatus(e.applyAssignment(stmt.Assign, false))
		return condition.NoOp

	case ast.KindExport:
		e.setStatus(e.applyAssignment(stmt.Assign, true))
		return condition.NoOp

	case ast.KindPipeline:
		return e.execPipeline(ctx, stmt.Pipeline)

	case ast.KindIf:
		return NewIfExecutor(e).Execute(ctx, stmt)

	case ast.KindWhile:
		return NewLoopExecutor(e).While(ctx, stmt)

	case ast.KindFor:
		return NewLoopExecutor(e).For(ctx, stmt)

	case ast.KindMatch:
		return NewMatchExecutor(e).Execute(ctx, stmt)

	case ast.KindFunction:
		e.State.Vars.SetFunction(stmt.FuncName, &variables.Function{
			Name: stmt.FuncName,
			Args: stmt.FuncArgs,
			Doc:  stmt.FuncDoc,
			Body: stmt.FuncBody,
		})
		return condition.NoOp

	case ast.KindTime:
		return e.execTime(ctx, stmt.Inner)

	case ast.KindAnd:
		if e.State.LastStatus != 0 {
			return condition.NoOp
		}
		return e.Execute(ctx, stmt.Inner)

	case ast.KindOr:
		// Open question (spec.md §9): triggers only when last_status is
		// exactly 1, not any non-zero status. Preserved as-is.
		if e.State.LastStatus != 1 {
			return condition.NoOp
		}
		return e.Execute(ctx, stmt.Inner)

	case ast.KindNot:
		// Open question (spec.md §9): the child's condition is discarded
		// entirely, even Break/SigInt. Preserved as-is.
		e.Execute(ctx, stmt.Inner)
		switch e.State.LastStatus {
		case 0:
			e.setStatus(1)
		case 1:
			e.setStatus(0)
		}
		return condition.NoOp

	case ast.KindBreak:
		e.State.breakEnclosing = stmt.Levels()
		return condition.Break

	case ast.KindContinue:
		e.State.contnEnclosing = stmt.Levels()
		return condition.Continue

	default:
		return condition.NoOp
	}
}

// applyAssignment runs VariableStore's assignment routine (spec.md §6)
// and returns the integer status spec.md §4.1 says to capture into
// last_status. An empty name is the only failure this simplified
// assignment grammar can produce.
func (e *StatementExecutor) applyAssignment(a ast.Assignment, export bool) int {
	if a.Name == "" {
		return 1
	}
	env := e.environ()
	if a.Array != nil {
		values := make([]string, 0, len(a.Array))
		for _, w := range a.Array {
			fields, _ := e.State.Expander.ExpandString(string(w), env, true)
			values = append(values, fields...)
		}
		if a.Append {
			if prev := e.State.Vars.Get(a.Name); prev.Kind == variables.KindArray {
				values = append(append([]string{}, prev.Array...), values...)
			}
		}
		e.State.Vars.SetArray(a.Name, values)
	} else {
		fields, _ := e.State.Expander.ExpandString(string(a.Value), env, false)
		value := ""
		if len(fields) > 0 {
			value = fields[0]
		}
		if a.Append {
			value = e.State.Vars.Get(a.Name).String() + value
		}
		e.State.Vars.SetScalar(a.Name, value)
	}
	if export {
		os.Setenv(a.Name, e.State.Vars.Get(a.Name).String())
	}
	if e.State.Flags.Has(FlagTrace) {
		e.State.Trace.Assign(a.Name, e.State.Vars.Get(a.Name).String())
	}
	return 0
}

// execPipeline is spec.md §4.1's Pipeline(p) arm: delegate to
// PipelineRunner, update last_status, and terminate the process under
// errexit. Runner.ok == false is an "internal pipeline failure"
// (spec.md §7.4), treated as non-success.
func (e *StatementExecutor) execPipeline(ctx context.Context, p *pipeline.Pipeline) condition.Condition {
	status, ok := e.State.Runner.RunPipeline(ctx, p)
	if !ok {
		status = 1
	}
	e.setStatus(status)
	if e.State.Flags.Has(FlagTrace) && p != nil {
		stages := make([][]string, len(p.Commands))
		for i, c := range p.Commands {
			stages[i] = c.Args
		}
		e.State.Trace.Pipeline(stages, status)
	}
	if e.State.Flags.Has(FlagErrexit) && status != 0 {
		panic(FatalExit{Code: status})
	}
	return condition.NoOp
}

// execTime is spec.md §4.1's Time(s) arm.
func (e *StatementExecutor) execTime(ctx context.Context, inner *ast.Statement) condition.Condition {
	start := time.Now()
	cond := e.Execute(ctx, inner)
	fmt.Fprintln(e.State.Stdout, formatElapsed(time.Since(start)))
	return cond
}

// formatElapsed renders a duration the way spec.md §4.1 and its
// scenario 6 require: "real    Mm SS.NNNNNNNNNs" once the duration
// reaches a minute, otherwise "real    S.NNNNNNNNNs".
func formatElapsed(d time.Duration) string {
	total := d.Nanoseconds()
	secs := total / int64(time.Second)
	nanos := total % int64(time.Second)
	if secs >= 60 {
		return fmt.Sprintf("real    %dm %02d.%09ds", secs/60, secs%60, nanos)
	}
	return fmt.Sprintf("real    %d.%09ds", secs, nanos)
}
