package executor

import (
	"os"

	"github.com/yonasBSD/ion-shell/condition"
	"github.com/yonasBSD/ion-shell/signal"
)

// SignalProbe is the 5%-share component from spec.md §2: after each
// statement, it polls the pending-signal source and translates delivery
// into either process termination or a SigInt condition, per the
// priority order spec.md §4.1 lists.
type SignalProbe struct {
	Signals signal.Source
	Exit    func(code int)
}

// NewSignalProbe returns a probe over src; exit defaults to os.Exit
// when nil.
func NewSignalProbe(src signal.Source, exit func(int)) *SignalProbe {
	if exit == nil {
		exit = os.Exit
	}
	return &SignalProbe{Signals: src, Exit: exit}
}

// After implements spec.md §4.1's post-dispatch signal check. cond is
// the condition the statement's own body just computed; breakFlow is
// ShellState's latch. The returned condition is what StatementExecutor
// hands back to its caller.
func (p *SignalProbe) After(cond condition.Condition, breakFlow *bool) condition.Condition {
	if sig, ok := p.Signals.Next(); ok {
		if p.Signals.Handle(sig) {
			p.Exit(p.Signals.Code(sig))
			// Reached only when Exit is a test stub that does not actually
			// terminate; a real os.Exit never returns here.
			return condition.SigInt
		}
		return condition.SigInt
	}
	if *breakFlow {
		*breakFlow = false
		return condition.SigInt
	}
	return cond
}
