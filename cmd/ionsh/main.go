// Command ionsh is a proof-of-concept shell front end for the
// statement executor, grounded on the teacher's cmd/gosh/main.go: an
// -c inline script mode, a file-argument mode, and an interactive
// prompt loop gated on golang.org/x/term.IsTerminal. Unlike gosh's bare
// flag package, the CLI surface here is a github.com/spf13/cobra tree
// (run/version subcommands, persistent --rcfile/--errexit/--trace
// flags), the way aledsdavies/devcmd structures its cobra-based cmd
// package.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yonasBSD/ion-shell/executor"
	"github.com/yonasBSD/ion-shell/expand"
	"github.com/yonasBSD/ion-shell/pipeline"
	ionsignal "github.com/yonasBSD/ion-shell/signal"
	"github.com/yonasBSD/ion-shell/variables"
)

var (
	flagCommand string
	flagRCFile  string
	flagErrexit bool
	flagTrace   bool
	flagHistory string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ionsh [script...]",
		Short: "a proof-of-concept interpreter for the ion statement executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(cmd.Context(), args)
		},
	}
	root.PersistentFlags().StringVarP(&flagCommand, "command", "c", "", "command to execute")
	root.PersistentFlags().StringVar(&flagRCFile, "rcfile", defaultRCFile(), "rc file loaded before the first statement")
	root.PersistentFlags().BoolVar(&flagErrexit, "errexit", false, "abort on the first non-zero pipeline status")
	root.PersistentFlags().BoolVar(&flagTrace, "trace", false, "log executed pipelines, assignments and for-loop bindings (xtrace-style)")
	root.PersistentFlags().StringVar(&flagHistory, "history", "", "path to persist command history (atomic write on exit)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [script...]",
		Short: "run one or more script files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(cmd.Context(), args)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the ionsh version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "ionsh (statement executor proof of concept)")
			return nil
		},
	}
}

func defaultRCFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ionshrc.yaml")
}

// runAll mirrors cmd/gosh/main.go's runAll: build a ctx cancelled on
// SIGINT/SIGTERM, construct the executor, apply the rc file, then pick
// -c / file-args / interactive-or-piped-stdin mode.
func runAll(ctx context.Context, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, entry, hist := newShell()
	defer hist.flush()

	cfg, err := loadRC(flagRCFile)
	if err != nil {
		return fmt.Errorf("ionsh: reading rcfile: %w", err)
	}
	cfg.apply(state)
	if flagErrexit {
		state.Flags |= executor.FlagErrexit
	}
	if flagTrace {
		state.Flags |= executor.FlagTrace
	}

	if flagCommand != "" {
		entry.OnCommand(ctx, flagCommand)
		hist.record(flagCommand)
		return nil
	}
	if len(paths) == 0 {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return runInteractive(ctx, entry, hist, os.Stdin, os.Stdout)
		}
		return runReader(ctx, entry, hist, os.Stdin)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = runReader(ctx, entry, hist, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// newShell wires every external collaborator the way SPEC_FULL.md's
// MODULE MAP prescribes: a real VariableStore, DefaultRunner backed by
// expand.Default, an OS signal source, and a Tracer writing to stderr.
func newShell() (*executor.ShellState, *executor.CommandEntry, *history) {
	vars := variables.New()
	runner := &pipeline.DefaultRunner{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Expander: expand.Default{},
	}
	sigs := ionsignal.NewOS()

	state := executor.NewState(vars, runner, expand.Default{}, sigs)
	runner.Environ = storeEnvironAdapter{vars}
	exec := executor.New(state)
	entry := executor.NewCommandEntry(exec)
	return state, entry, newHistory(flagHistory)
}

// runInteractive mirrors cmd/gosh/main.go's runInteractive: a bare "$ "
// prompt, one OnCommand call per line, with no readline-style editing
// (the teacher's gosh is itself described as a proof of concept).
func runInteractive(ctx context.Context, entry *executor.CommandEntry, hist *history, in *os.File, out *os.File) error {
	fmt.Fprint(out, "$ ")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		entry.OnCommand(ctx, line)
		hist.record(line)
		fmt.Fprint(out, "$ ")
	}
	return scanner.Err()
}

// runReader feeds every line of r to entry.OnCommand in turn, used for
// both a non-interactive piped stdin and a script file argument.
func runReader(ctx context.Context, entry *executor.CommandEntry, hist *history, r *os.File) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		entry.OnCommand(ctx, line)
		hist.record(line)
	}
	return scanner.Err()
}
