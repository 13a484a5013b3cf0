package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/yonasBSD/ion-shell/ast"
	"github.com/yonasBSD/ion-shell/condition"
	"github.com/yonasBSD/ion-shell/parser"
	"github.com/yonasBSD/ion-shell/variables"
)

// MatchExecutor is spec.md §4.6's 12%-share component: pattern matching
// against a scalar or array subject with optional binding and guard.
type MatchExecutor struct {
	exec *StatementExecutor
}

// NewMatchExecutor returns a MatchExecutor delegating leaf execution to
// exec.
func NewMatchExecutor(exec *StatementExecutor) *MatchExecutor {
	return &MatchExecutor{exec: exec}
}

// Execute walks stmt.MatchCases in declaration order (P6: at most one
// case body runs; a default, pattern-absent case only matches when no
// preceding case did).
func (me *MatchExecutor) Execute(ctx context.Context, stmt *ast.Statement) condition.Condition {
	env := me.exec.environ()
	isArraySubject := me.exec.State.Expander.IsArray(string(stmt.MatchSubject))
	subject, _ := me.exec.State.Expander.ExpandString(string(stmt.MatchSubject), env, true)

	for i := range stmt.MatchCases {
		c := &stmt.MatchCases[i]
		if !me.matches(c, subject, env) {
			continue
		}

		var saved variables.Value
		bound := c.Binding != ""
		if bound {
			saved = me.exec.State.Vars.Get(c.Binding)
			if isArraySubject {
				me.exec.State.Vars.SetArray(c.Binding, subject)
			} else {
				me.exec.State.Vars.SetScalar(c.Binding, strings.Join(subject, " "))
			}
		}

		if c.Guard != "" {
			if guardFailed := me.runGuard(ctx, c.Guard); guardFailed {
				// Open question (spec.md §9), resolved per DESIGN.md: a
				// failing guard restores any binding before moving on to the
				// next case, rather than leaving it bound.
				if bound {
					me.exec.State.Vars.Set(c.Binding, saved)
				}
				continue
			}
		}

		cond := me.exec.ExecuteBlock(ctx, c.Body)

		if bound {
			// §9 supplement: unify the restore path on variables.Store.Set
			// for every value kind (scalar, array, function), rather than
			// the source's inconsistent scalar/array split.
			me.exec.State.Vars.Set(c.Binding, saved)
		}
		return cond
	}
	return condition.NoOp
}

// matches implements the overlap test spec.md §4.6 defines: the
// default case (nil Patterns) always matches; otherwise each pattern is
// expanded to an array and the case matches if any element of any
// pattern's array equals any element of the subject array.
func (me *MatchExecutor) matches(c *ast.Case, subject []string, env storeEnviron) bool {
	if c.Patterns == nil {
		return true
	}
	for _, pat := range c.Patterns {
		fields, _ := me.exec.State.Expander.ExpandString(string(pat), env, true)
		if overlaps(fields, subject) {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	for _, v := range a {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// runGuard parses guard as a fresh top-level statement and executes it
// the way CommandEntry would (spec.md §4.6 step 2: "execute it as a
// fresh top-level command via CommandEntry"), reporting whether
// last_status ended up non-zero.
func (me *MatchExecutor) runGuard(ctx context.Context, guard string) (failed bool) {
	stmt, err := parseOneStatement(guard)
	if err != nil {
		fmt.Fprintln(me.exec.State.Stderr, err)
		return true
	}
	me.exec.Execute(ctx, stmt)
	return me.exec.State.LastStatus != 0
}

// parseOneStatement runs guard through a scratch Parser/FlowBuilder
// pair, matching spec.md §6's collaborators rather than hand-parsing
// the guard text in this package.
func parseOneStatement(raw string) (*ast.Statement, error) {
	var p parser.Parser
	fb := parser.NewFlowBuilder()
	var result *ast.Statement
	for _, line := range p.Split(raw) {
		stmt, err := fb.Insert(line)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			result = stmt
		}
	}
	if result == nil {
		return nil, fmt.Errorf("executor: guard %q is not a complete statement", raw)
	}
	return result, nil
}
