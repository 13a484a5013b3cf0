// Package signal implements the signal-source external collaborator
// from spec.md §6 (next_signal/handle_signal/get_signal_code), used by
// the executor package's SignalProbe to poll for a pending interrupt
// after every leaf statement (spec.md §4.1, §5). It is grounded on
// cmd/gosh/main.go's signal.NotifyContext(ctx, os.Interrupt,
// syscall.SIGTERM) usage in the teacher, with numeric codes sourced
// from golang.org/x/sys/unix rather than hand-rolled per-platform
// constants.
package signal

import (
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Signal is the minimal identity the executor cares about: whether a
// delivered signal is the interrupt the spec calls SigInt, or some
// other terminal signal.
type Signal struct {
	os     os.Signal
	sigint bool
}

// Source is the collaborator contract from spec.md §6.
type Source interface {
	// Next returns the next pending signal, if any, without blocking.
	Next() (Signal, bool)
	// Handle reports whether the delivered signal should terminate the
	// process (true) or merely unwind the current statement via SigInt
	// (false).
	Handle(Signal) bool
	// Code returns the numeric exit code a terminal signal should
	// produce, matching the conventional "128 + signal number".
	Code(Signal) int
}

// OS is a Source backed by the real process signal channel. NewOS
// starts listening immediately; Stop unregisters it when the shell
// exits.
type OS struct {
	ch      chan os.Signal
	pending atomic.Pointer[Signal]
}

// NewOS constructs an OS source listening for SIGINT and SIGTERM, the
// same pair cmd/gosh/main.go registers via signal.NotifyContext.
func NewOS() *OS {
	s := &OS{ch: make(chan os.Signal, 1)}
	signal.Notify(s.ch, os.Interrupt, unix.SIGTERM)
	go s.loop()
	return s
}

func (s *OS) loop() {
	for sig := range s.ch {
		v := Signal{os: sig, sigint: sig == os.Interrupt}
		s.pending.Store(&v)
	}
}

// Stop unregisters the signal channel; safe to call once, after which
// the OS source reports no further pending signals.
func (s *OS) Stop() {
	signal.Stop(s.ch)
	close(s.ch)
}

func (s *OS) Next() (Signal, bool) {
	p := s.pending.Swap(nil)
	if p == nil {
		return Signal{}, false
	}
	return *p, true
}

// Handle treats SIGINT as non-terminal (it unwinds the current
// statement via Condition.SigInt, per spec.md §4.1) and any other
// delivered signal as terminal, matching the teacher's
// trapCallback/exit.fatal split between recoverable and fatal signal
// handling.
func (s *OS) Handle(sig Signal) bool {
	return !sig.sigint
}

func (s *OS) Code(sig Signal) int {
	if sig.sigint {
		return 128 + int(unix.SIGINT)
	}
	return 128 + int(unix.SIGTERM)
}

// None is a Source that never reports a pending signal, useful for
// tests of statement semantics that should not also exercise interrupt
// handling (spec.md's P1-P3 properties, for instance).
type None struct{}

func (None) Next() (Signal, bool) { return Signal{}, false }
func (None) Handle(Signal) bool   { return false }
func (None) Code(Signal) int      { return 0 }
