package scripttest_test

import (
	"bytes"
	"testing"

	"github.com/yonasBSD/ion-shell/executor"
	"github.com/yonasBSD/ion-shell/expand"
	"github.com/yonasBSD/ion-shell/internal/scripttest"
	"github.com/yonasBSD/ion-shell/pipeline"
	"github.com/yonasBSD/ion-shell/signal"
	"github.com/yonasBSD/ion-shell/variables"
)

// storeEnviron adapts a *variables.Store to expand.Environ, duplicated
// from executor's own unexported adapter (see executor/state.go and
// cmd/ionsh/environ.go) since each caller of DefaultRunner.Expander
// needs its own narrow read view of the Store it owns.
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

func newEntry(stdout *bytes.Buffer) *executor.CommandEntry {
	vars := variables.New()
	runner := &pipeline.DefaultRunner{
		Stdout:   stdout,
		Expander: expand.Default{},
		Environ:  storeEnviron{vars},
	}
	state := executor.NewState(vars, runner, expand.Default{}, signal.None{})
	return executor.NewCommandEntry(executor.New(state))
}

func TestScripts(t *testing.T) {
	scripttest.Run(t, "testdata/scripts", newEntry)
}
