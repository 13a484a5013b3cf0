package executor

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/yonasBSD/ion-shell/ast"
	"github.com/yonasBSD/ion-shell/condition"
	"github.com/yonasBSD/ion-shell/expand"
	"github.com/yonasBSD/ion-shell/pipeline"
	"github.com/yonasBSD/ion-shell/signal"
	"github.com/yonasBSD/ion-shell/variables"
)

// newTestExecutor wires a StatementExecutor to a real DefaultRunner (so
// scenarios can assert on actual subprocess stdout) and a deterministic
// test Exit function that records the code instead of terminating the
// test binary.
func newTestExecutor(t *testing.T, stdout *bytes.Buffer) (*StatementExecutor, *[]int) {
	t.Helper()
	vars := variables.New()
	state := NewState(vars, nil, expand.Default{}, signal.None{})
	state.Runner = &pipeline.DefaultRunner{
		Stdout:   stdout,
		Expander: expand.Default{},
		Environ:  storeEnviron{vars},
	}
	var exits []int
	state.Exit = func(code int) { exits = append(exits, code) }
	return New(state), &exits
}

func pipelineStmt(args ...string) ast.Statement {
	return ast.Statement{Kind: ast.KindPipeline, Pipeline: &pipeline.Pipeline{
		Commands: []pipeline.Command{{Args: args}},
	}}
}

// Scenario 1 (spec.md §8.1): let x = 3; for i in 1..3; echo $i; end; echo done
func TestScenarioForRangeLoop(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	prog := []ast.Statement{
		{Kind: ast.KindLet, Assign: ast.Assignment{Name: "x", Value: "3"}},
		{
			Kind:      ast.KindFor,
			ForVar:    "i",
			ForValues: []ast.Word{"1..3"},
			ForBody:   []ast.Statement{pipelineStmt("echo", "$i")},
		},
		pipelineStmt("echo", "done"),
	}
	cond := exec.ExecuteBlock(ctx, prog)
	if cond != condition.NoOp {
		t.Fatalf("ExecuteBlock = %v, want NoOp", cond)
	}
	if got := out.String(); got != "1\n2\ndone\n" {
		t.Fatalf("stdout = %q, want %q", got, "1\n2\ndone\n")
	}
	if exec.State.LastStatus != 0 {
		t.Fatalf("LastStatus = %d, want 0", exec.State.LastStatus)
	}
	if got := exec.State.Vars.Get("x").Scalar; got != "3" {
		t.Fatalf("x = %q, want %q (unchanged by the loop)", got, "3")
	}
}

// Scenario 2 (spec.md §8.2): if/else-if/else chain.
func TestScenarioIfElseIf(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	falseCond := pipelineStmt("false")
	trueCond := pipelineStmt("true")
	stmt := ast.Statement{
		Kind:   ast.KindIf,
		IfCond: &falseCond,
		IfThen: []ast.Statement{pipelineStmt("echo", "a")},
		IfElifs: []ast.ElseIf{
			{Cond: &trueCond, Then: []ast.Statement{pipelineStmt("echo", "b")}},
		},
		IfElse: []ast.Statement{pipelineStmt("echo", "c")},
	}
	exec.Execute(ctx, &stmt)
	if got := out.String(); got != "b\n" {
		t.Fatalf("stdout = %q, want %q", got, "b\n")
	}
}

// Scenario 4 (spec.md §8.4) and P6: only the first matching case runs.
func TestScenarioMatchFirstHit(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	stmt := ast.Statement{
		Kind:         ast.KindMatch,
		MatchSubject: "hello",
		MatchCases: []ast.Case{
			{Patterns: []ast.Word{"hello"}, Body: []ast.Statement{pipelineStmt("echo", "matched")}},
			{Patterns: nil, Body: []ast.Statement{pipelineStmt("echo", "default")}},
		},
	}
	exec.Execute(ctx, &stmt)
	if got := out.String(); got != "matched\n" {
		t.Fatalf("stdout = %q, want %q", got, "matched\n")
	}
}

func TestMatchDefaultCaseWhenNoPatternMatches(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	stmt := ast.Statement{
		Kind:         ast.KindMatch,
		MatchSubject: "nope",
		MatchCases: []ast.Case{
			{Patterns: []ast.Word{"hello"}, Body: []ast.Statement{pipelineStmt("echo", "matched")}},
			{Patterns: nil, Body: []ast.Statement{pipelineStmt("echo", "default")}},
		},
	}
	exec.Execute(ctx, &stmt)
	if got := out.String(); got != "default\n" {
		t.Fatalf("stdout = %q, want %q", got, "default\n")
	}
}

// P7: a match binding is restored to its prior value/type after the
// match completes, regardless of branch taken.
func TestMatchBindingRestoration(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()
	exec.State.Vars.SetScalar("who", "previous")

	stmt := ast.Statement{
		Kind:         ast.KindMatch,
		MatchSubject: "hello",
		MatchCases: []ast.Case{
			{Patterns: []ast.Word{"hello"}, Binding: "who", Body: []ast.Statement{pipelineStmt("echo", "$who")}},
		},
	}
	exec.Execute(ctx, &stmt)
	if got := out.String(); got != "hello\n" {
		t.Fatalf("stdout during match = %q, want %q", got, "hello\n")
	}
	if got := exec.State.Vars.Get("who").Scalar; got != "previous" {
		t.Fatalf("who after match = %q, want restored %q", got, "previous")
	}
}

// Scenario 5 (spec.md §8.5): false; and echo skipped; or echo ran
func TestScenarioAndOrShortCircuit(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	echoSkipped := pipelineStmt("echo", "skipped")
	echoRan := pipelineStmt("echo", "ran")
	prog := []ast.Statement{
		pipelineStmt("false"),
		{Kind: ast.KindAnd, Inner: &echoSkipped},
		{Kind: ast.KindOr, Inner: &echoRan},
	}
	exec.ExecuteBlock(ctx, prog)
	if got := out.String(); got != "ran\n" {
		t.Fatalf("stdout = %q, want %q", got, "ran\n")
	}
	if exec.State.LastStatus != 0 {
		t.Fatalf("LastStatus = %d, want 0", exec.State.LastStatus)
	}
}

// P8: Not maps 0->1 and 1->0, leaving other statuses untouched.
func TestNotInvertsZeroAndOneOnly(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	trueStmt := pipelineStmt("true")
	exec.Execute(ctx, &ast.Statement{Kind: ast.KindNot, Inner: &trueStmt})
	if exec.State.LastStatus != 1 {
		t.Fatalf("Not(true): LastStatus = %d, want 1", exec.State.LastStatus)
	}
	if got := exec.State.Vars.Get("?").Scalar; got != "1" {
		t.Fatalf("? = %q, want %q", got, "1")
	}

	falseStmt := pipelineStmt("false")
	exec.Execute(ctx, &ast.Statement{Kind: ast.KindNot, Inner: &falseStmt})
	if exec.State.LastStatus != 0 {
		t.Fatalf("Not(false): LastStatus = %d, want 0", exec.State.LastStatus)
	}

	exitTwo := pipelineStmt("sh", "-c", "exit 7")
	exec.Execute(ctx, &ast.Statement{Kind: ast.KindNot, Inner: &exitTwo})
	if exec.State.LastStatus != 7 {
		t.Fatalf("Not(exit 7): LastStatus = %d, want 7 (unchanged)", exec.State.LastStatus)
	}
}

// Scenario 6 (spec.md §8.6): time echo hi
func TestScenarioTimeFormatting(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	echoHi := pipelineStmt("echo", "hi")
	exec.Execute(ctx, &ast.Statement{Kind: ast.KindTime, Inner: &echoHi})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "hi" {
		t.Fatalf("lines = %v, want first line %q", lines, "hi")
	}
	re := regexp.MustCompile(`^real    \d+\.\d{9}s$`)
	if !re.MatchString(lines[1]) {
		t.Fatalf("second line %q does not match %s", lines[1], re.String())
	}
}

// P2: last_status and variable "?" agree after every status-changing
// statement.
func TestStatusMirrorsIntoQuestionMark(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	exec.Execute(ctx, &ast.Statement{Kind: ast.KindError, ErrorCode: 42})
	if got := exec.State.Vars.Get("?").Scalar; got != "42" {
		t.Fatalf("? after Error(42) = %q, want %q", got, "42")
	}

	falseStmt := pipelineStmt("false")
	exec.Execute(ctx, &falseStmt)
	if got := exec.State.Vars.Get("?").Scalar; got != "1" {
		t.Fatalf("? after a failing pipeline = %q, want %q", got, "1")
	}
}

// P2 still holds once the status-changing statement runs inside a
// pushed-and-popped ScopeGuard, e.g. an If condition or body
// (executor/if_executor.go routes both through ExecuteBlock). "?" must
// keep reflecting last_status from the enclosing scope even though the
// scope the write happened in is long gone.
func TestStatusMirrorsIntoQuestionMarkAcrossScopeGuard(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	ifStmt := ast.Statement{
		Kind:   ast.KindIf,
		IfCond: &ast.Statement{Kind: ast.KindError, ErrorCode: 0},
		IfThen: []ast.Statement{{Kind: ast.KindError, ErrorCode: 7}},
	}
	exec.Execute(ctx, &ifStmt)
	if got := exec.State.Vars.Get("?").Scalar; got != "7" {
		t.Fatalf("? after if-then = %q, want %q", got, "7")
	}
	if depth := exec.State.Vars.Depth(); depth != 0 {
		t.Fatalf("scope depth after if = %d, want 0", depth)
	}

	// ExecuteBlock directly: the statement's "?" write happens inside the
	// pushed scope and must still be visible after it pops.
	cond := exec.ExecuteBlock(ctx, []ast.Statement{{Kind: ast.KindError, ErrorCode: 9}})
	if cond != condition.NoOp {
		t.Fatalf("ExecuteBlock = %v, want NoOp", cond)
	}
	if got := exec.State.Vars.Get("?").Scalar; got != "9" {
		t.Fatalf("? after ExecuteBlock = %q, want %q", got, "9")
	}
}

// P1: scope push/pop stays balanced across a block, including one that
// exits via a non-NoOp condition partway through.
func TestScopeBalanceAcrossBlock(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	before := exec.State.Vars.Depth()
	prog := []ast.Statement{
		pipelineStmt("true"),
		{Kind: ast.KindBreak},
		pipelineStmt("echo", "unreachable"),
	}
	exec.ExecuteBlock(ctx, prog)
	if got := exec.State.Vars.Depth(); got != before {
		t.Fatalf("Depth() after block = %d, want %d (unchanged)", got, before)
	}
	if out.String() != "" {
		t.Fatalf("stdout = %q, want empty (statement after Break must not run)", out.String())
	}
}

// P3: Break/Continue at top level are absorbed by CommandEntry and
// don't affect subsequent statements fed through it.
func TestCommandEntryAbsorbsTopLevelBreak(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ce := NewCommandEntry(exec)

	ce.OnCommand(context.Background(), "break")
	ce.OnCommand(context.Background(), "echo still-here")
	if got := out.String(); got != "still-here\n" {
		t.Fatalf("stdout = %q, want %q", got, "still-here\n")
	}
}

// P5: a for-loop variable named "_" is never written to the store.
func TestForUnderscoreNonBinding(t *testing.T) {
	var out bytes.Buffer
	exec, _ := newTestExecutor(t, &out)
	ctx := context.Background()

	stmt := ast.Statement{
		Kind:      ast.KindFor,
		ForVar:    "_",
		ForValues: []ast.Word{"a", "b"},
		ForBody:   []ast.Statement{pipelineStmt("true")},
	}
	exec.Execute(ctx, &stmt)
	if exec.State.Vars.Get("_").IsSet() {
		t.Fatal("for-underscore loop wrote a binding for \"_\"")
	}
}

// P4: once SigInt is produced by any inner statement, no further
// siblings or loop iterations run.
func TestSigIntMonotonicity(t *testing.T) {
	var out bytes.Buffer
	vars := variables.New()
	state := NewState(vars, nil, expand.Default{}, nil)
	state.Runner = &pipeline.DefaultRunner{Stdout: &out, Expander: expand.Default{}, Environ: storeEnviron{vars}}
	src := &countingSigSource{fireAfter: 1}
	state.Signals = src
	var exits []int
	state.Exit = func(code int) { exits = append(exits, code) }

	exec := New(state)
	ctx := context.Background()

	body := []ast.Statement{pipelineStmt("true"), pipelineStmt("echo", "should-not-run")}
	for i := range body {
		if cond := exec.ExecuteBlock(ctx, body[i:i+1]); cond == condition.SigInt {
			break
		}
	}
	if out.String() != "" {
		t.Fatalf("stdout = %q, want empty once SigInt fires", out.String())
	}
}

// countingSigSource reports one pending non-terminal (SigInt-shaped)
// signal on the fireAfter-th call to Next, and nothing on any other call.
type countingSigSource struct {
	calls     int
	fireAfter int
}

func (s *countingSigSource) Next() (signal.Signal, bool) {
	s.calls++
	if s.calls == s.fireAfter {
		return signal.Signal{}, true
	}
	return signal.Signal{}, false
}
func (s *countingSigSource) Handle(signal.Signal) bool { return false } // non-terminal: unwinds via SigInt
func (s *countingSigSource) Code(signal.Signal) int    { return 0 }
