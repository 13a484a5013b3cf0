package executor

import (
	"context"
	"strconv"
	"strings"

	"github.com/yonasBSD/ion-shell/ast"
	"github.com/yonasBSD/ion-shell/condition"
	"github.com/yonasBSD/ion-shell/expand"
)

// LoopExecutor is spec.md §4.4/§4.5's 15%-share component: While and
// For iteration semantics, break/continue propagation, and
// signal-termination, shared under one type since both loop shapes
// drive the same body-execution/condition-dispatch logic.
type LoopExecutor struct {
	exec *StatementExecutor
}

// NewLoopExecutor returns a LoopExecutor delegating leaf execution to
// exec.
func NewLoopExecutor(exec *StatementExecutor) *LoopExecutor {
	return &LoopExecutor{exec: exec}
}

// reactToBody turns a loop body's condition into either "keep
// iterating" (stop == false) or "this loop is done, return result"
// (stop == true). It also implements the "break N"/"continue N"
// supplement: each enclosing loop decrements the pending count by one
// until it reaches the target level, propagating Break/Continue
// upward in the meantime instead of treating them as plain NoOp.
func (le *LoopExecutor) reactToBody(cond condition.Condition) (result condition.Condition, stop bool) {
	switch cond {
	case condition.Break:
		if le.exec.State.breakEnclosing > 1 {
			le.exec.State.breakEnclosing--
			return condition.Break, true
		}
		le.exec.State.breakEnclosing = 0
		return condition.NoOp, true
	case condition.SigInt:
		return condition.SigInt, true
	case condition.Continue:
		if le.exec.State.contnEnclosing > 1 {
			le.exec.State.contnEnclosing--
			return condition.Continue, true
		}
		le.exec.State.contnEnclosing = 0
		return condition.NoOp, false
	default:
		return condition.NoOp, false
	}
}

// While implements spec.md §4.4: repeatedly clone and run the
// condition pipeline; while it succeeds, run a cloned body and react to
// its condition.
func (le *LoopExecutor) While(ctx context.Context, stmt *ast.Statement) condition.Condition {
	for {
		status, ok := le.exec.State.Runner.RunPipeline(ctx, stmt.WhileCond.Clone())
		if !ok {
			status = 1
		}
		le.exec.setStatus(status)
		if status != 0 {
			return condition.NoOp
		}

		cond := le.exec.ExecuteBlock(ctx, ast.Clone(stmt.WhileBody))
		if result, stop := le.reactToBody(cond); stop {
			return result
		}
	}
}

// For implements spec.md §4.5: normalize raw_values through the
// Expander into a ForExpression, then iterate its Multiple/Normal/Range
// shape, binding var_name (unless it is "_", per P5) before each
// iteration of the cloned body.
func (le *LoopExecutor) For(ctx context.Context, stmt *ast.Statement) condition.Condition {
	raw := make([]string, len(stmt.ForValues))
	for i, w := range stmt.ForValues {
		raw[i] = string(w)
	}
	fe := expand.NewForExpression(raw, le.exec.State.Expander, le.exec.environ())

	bind := func(value string) {
		if stmt.ForVar == "_" {
			return
		}
		if le.exec.State.Flags.Has(FlagTrace) {
			before := le.exec.State.Vars.Get(stmt.ForVar).String()
			le.exec.State.Trace.VarDiff(stmt.ForVar, before, value)
		}
		le.exec.State.Vars.SetScalar(stmt.ForVar, value)
	}

	if list, ok := fe.Multiple(); ok {
		for _, v := range list {
			bind(v)
			cond := le.exec.ExecuteBlock(ctx, ast.Clone(stmt.ForBody))
			if result, stop := le.reactToBody(cond); stop {
				return result
			}
		}
		return condition.NoOp
	}
	if literal, ok := fe.Normal(); ok {
		for _, line := range strings.Split(literal, "\n") {
			bind(line)
			cond := le.exec.ExecuteBlock(ctx, ast.Clone(stmt.ForBody))
			if result, stop := le.reactToBody(cond); stop {
				return result
			}
		}
		return condition.NoOp
	}
	if start, end, ok := fe.Range(); ok {
		for i := start; i < end; i++ {
			bind(strconv.FormatInt(i, 10))
			cond := le.exec.ExecuteBlock(ctx, ast.Clone(stmt.ForBody))
			if result, stop := le.reactToBody(cond); stop {
				return result
			}
		}
	}
	return condition.NoOp
}
