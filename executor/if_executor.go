package executor

import (
	"context"

	"github.com/yonasBSD/ion-shell/ast"
	"github.com/yonasBSD/ion-shell/condition"
)

// IfExecutor is spec.md §4.3's 8%-share component: chained condition
// evaluation over [(cond, then), (elif.cond, elif.then), ...] with
// early exit on interrupt.
type IfExecutor struct {
	exec *StatementExecutor
}

// NewIfExecutor returns an IfExecutor delegating leaf execution to exec.
func NewIfExecutor(exec *StatementExecutor) *IfExecutor {
	return &IfExecutor{exec: exec}
}

// Execute walks stmt.IfCond/IfThen then each IfElifs arm in order,
// running the first whose condition statement exits 0 and returning its
// body's condition; falls back to IfElse, or NoOp if that is empty.
func (ie *IfExecutor) Execute(ctx context.Context, stmt *ast.Statement) condition.Condition {
	cond, then := stmt.IfCond, stmt.IfThen
	elifs := stmt.IfElifs
	for {
		result := ie.exec.ExecuteBlock(ctx, []ast.Statement{*cond})
		if result == condition.SigInt {
			return condition.SigInt
		}
		if ie.exec.State.LastStatus == 0 {
			return ie.exec.ExecuteBlock(ctx, then)
		}
		if len(elifs) == 0 {
			break
		}
		cond, then = elifs[0].Cond, elifs[0].Then
		elifs = elifs[1:]
	}
	return ie.exec.ExecuteBlock(ctx, stmt.IfElse)
}
