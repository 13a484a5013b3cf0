package main

import (
	"strings"

	maybeio "github.com/google/renameio/v2/maybe"
)

// history accumulates the session's input lines in memory and flushes
// them to disk atomically on request, the way shfmt's -w mode writes
// formatted output via maybeio.WriteFile (cmd/shfmt/main.go) rather than
// truncating the destination file in place — a crash mid-write leaves
// the previous history file intact instead of a half-written one.
type history struct {
	path  string
	lines []string
}

func newHistory(path string) *history {
	return &history{path: path}
}

func (h *history) record(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	h.lines = append(h.lines, line)
}

// flush writes the accumulated lines to h.path, a no-op when no path
// was configured (history persistence is opt-in via --history).
func (h *history) flush() error {
	if h.path == "" {
		return nil
	}
	data := []byte(strings.Join(h.lines, "\n"))
	if len(data) > 0 {
		data = append(data, '\n')
	}
	return maybeio.WriteFile(h.path, data, 0o644)
}
