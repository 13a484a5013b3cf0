package main

import "github.com/yonasBSD/ion-shell/variables"

// storeEnvironAdapter adapts a *variables.Store to expand.Environ, the
// same narrow read-only view executor.storeEnviron provides internally
// to the StatementExecutor; duplicated here since that type is
// unexported and cmd/ionsh needs one to let DefaultRunner expand a
// Command's argv directly from the shared VariableStore.
type storeEnvironAdapter struct{ store *variables.Store }

func (e storeEnvironAdapter) Lookup(name string) (value string, isArray bool, array []string, ok bool) {
	v := e.store.Get(name)
	if !v.IsSet() {
		return "", false, nil, false
	}
	if v.Kind == variables.KindArray {
		return "", true, v.Array, true
	}
	return v.String(), false, nil, true
}
