package executor

import (
	"context"
	"fmt"

	"github.com/yonasBSD/ion-shell/parser"
)

// CommandEntry is spec.md §4.7's 3%-share top-level driver
// (`on_command`): splits one input line, feeds the Parser and
// FlowBuilder, and executes every completed statement.
type CommandEntry struct {
	Exec   *StatementExecutor
	Parser parser.Parser
}

// NewCommandEntry returns a CommandEntry driving exec, using exec's own
// ShellState.Flow as the FlowBuilder so partial blocks survive across
// OnCommand calls (e.g. an interactive prompt's continuation lines).
func NewCommandEntry(exec *StatementExecutor) *CommandEntry {
	return &CommandEntry{Exec: exec}
}

// OnCommand implements spec.md §4.7 exactly: clear break_flow, split
// input into raw statements, feed each to the FlowBuilder, and execute
// whatever comes back complete. A parse error prints to the error
// stream, resets the builder, and abandons the rest of this input line
// (spec.md §7.1); Break/Continue/SigInt returned by a top-level
// statement are silently absorbed here (P3).
func (c *CommandEntry) OnCommand(ctx context.Context, input string) {
	defer c.recoverFatalExit()
	c.Exec.State.breakFlow = false

	for _, raw := range c.Parser.Split(input) {
		stmt, err := c.Exec.State.Flow.Insert(raw)
		if err != nil {
			fmt.Fprintln(c.Exec.State.Stderr, err)
			c.Exec.State.Flow.Reset()
			return
		}
		if stmt == nil {
			continue
		}
		c.Exec.Execute(ctx, stmt)
	}
}

// recoverFatalExit is the panic/recover boundary matching the
// teacher's Runner.Run: a FatalExit raised anywhere beneath
// StatementExecutor.Execute (errexit) unwinds
// cleanly through every deferred ScopeGuard.Close along the way,
// surfacing here as an ordinary process exit.
func (c *CommandEntry) recoverFatalExit() {
	r := recover()
	if r == nil {
		return
	}
	fe, ok := r.(FatalExit)
	if !ok {
		panic(r)
	}
	c.Exec.State.Exit(fe.Code)
}
