// Package scripttest drives end-to-end CommandEntry scenarios recorded
// as txtar fixtures, using github.com/rogpeppe/go-internal/testscript
// the way the teacher repo leans on script-driven interpreter tests
// (cmd/shfmt/main_test.go's TestScripts). Unlike shfmt, which execs a
// built binary under test, scripttest runs entirely in-process: the
// custom "ionsh" script command feeds one line straight to a
// per-script CommandEntry and asserts its captured stdout and
// resulting status.
package scripttest

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/yonasBSD/ion-shell/executor"
)

// NewEntry builds a fresh CommandEntry writing to stdout, called once
// per script file the first time it issues an "ionsh" command.
type NewEntry func(stdout *bytes.Buffer) *executor.CommandEntry

// Run executes every ".txt"/".txtar" script under dir against a fresh
// CommandEntry per file. Each script line looks like:
//
//	ionsh 'echo hello'          # run a statement, discard its stdout
//	ionsh 'echo hello' 'hello'  # run a statement, assert its stdout
//	! ionsh 'exit 1'            # run a statement, assert non-zero status
func Run(t *testing.T, dir string, newEntry NewEntry) {
	t.Helper()

	var mu sync.Mutex
	sessions := map[*testscript.TestScript]*session{}

	get := func(ts *testscript.TestScript) *session {
		mu.Lock()
		defer mu.Unlock()
		s, ok := sessions[ts]
		if !ok {
			s = &session{}
			s.entry = newEntry(&s.stdout)
			sessions[ts] = s
		}
		return s
	}

	testscript.Run(t, testscript.Params{
		Dir: dir,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"ionsh": func(ts *testscript.TestScript, neg bool, args []string) {
				if len(args) == 0 {
					ts.Fatalf("ionsh: missing statement argument")
				}
				s := get(ts)
				s.stdout.Reset()
				s.entry.OnCommand(context.Background(), args[0])
				status := s.entry.Exec.State.LastStatus

				if neg {
					if status == 0 {
						ts.Fatalf("ionsh %q: expected non-zero status, got 0", args[0])
					}
					return
				}
				if status != 0 {
					ts.Fatalf("ionsh %q: expected zero status, got %d", args[0], status)
				}
				if len(args) > 1 {
					want := args[1]
					got := strings.TrimRight(s.stdout.String(), "\n")
					if got != want {
						ts.Fatalf("ionsh %q: stdout mismatch:\n got:  %q\n want: %q", args[0], got, want)
					}
				}
			},
			"status-is": func(ts *testscript.TestScript, neg bool, args []string) {
				if len(args) != 1 {
					ts.Fatalf("status-is: want exactly one argument")
				}
				want, err := strconv.Atoi(args[0])
				ts.Check(err)
				s := get(ts)
				got := s.entry.Exec.State.LastStatus
				if (got == want) == neg {
					ts.Fatalf("status-is %s: last_status is %d", args[0], got)
				}
			},
		},
	})
}

type session struct {
	entry  *executor.CommandEntry
	stdout bytes.Buffer
}
