//go:build !windows

package signal

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
)

// TestOSReceivesRealSigint delivers an actual SIGINT to this process
// and asserts NewOS observes it, mirroring the teacher's
// TestRunnerTerminalStdIO (interp/terminal_test.go), which opens a real
// pty rather than a pipe so a foreground/background distinction exists
// for the statement the SIGINT interrupts. The pty here stands in for
// the CommandEntry.OnCommand caller's controlling terminal; the signal
// itself is delivered process-wide via syscall.Kill, which is how a
// real terminal's Ctrl-C reaches the foreground process group too.
func TestOSReceivesRealSigint(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty.Open: %v (no pty available in this environment)", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	src := NewOS()
	defer src.Stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("syscall.Kill: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var sig Signal
	var ok bool
	for time.Now().Before(deadline) {
		if sig, ok = src.Next(); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !ok {
		t.Fatal("NewOS() never observed the delivered SIGINT")
	}
	if src.Handle(sig) {
		t.Fatal("Handle(delivered SIGINT) reported terminal, want non-terminal")
	}
	if code := src.Code(sig); code <= 128 {
		t.Fatalf("Code(delivered SIGINT) = %d, want > 128", code)
	}
}
