package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yonasBSD/ion-shell/executor"
)

// rcConfig is the shape of an optional ~/.ionshrc.yaml (or --rcfile)
// document, parsed before the first CommandEntry.OnCommand call the
// way a real shell sources its rc file before the first prompt —
// analogous to cmd/gosh's lack of one, but grounded on rolldone/pipejob's
// YAML-defined pipeline configuration for the shape of a declarative,
// pre-execution config document.
type rcConfig struct {
	// Vars are set as plain shell scalars in the base scope before the
	// prompt loop or the -c script runs; they are not exported to the
	// process environment.
	Vars map[string]string `yaml:"vars"`
	// Errexit/Trace seed ShellState.Flags the same way "-o errexit"/
	// "-o xtrace" would on a teacher-shell command line.
	Errexit bool `yaml:"errexit"`
	Trace   bool `yaml:"trace"`
}

// loadRC reads and parses path, returning a zero-value rcConfig (not an
// error) when path doesn't exist, since an rc file is always optional.
func loadRC(path string) (rcConfig, error) {
	var cfg rcConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// apply seeds state with the rc file's variables and flags before the
// caller's first OnCommand, matching SPEC_FULL.md's configuration
// section.
func (cfg rcConfig) apply(state *executor.ShellState) {
	for name, value := range cfg.Vars {
		state.Vars.SetScalar(name, value)
	}
	if cfg.Errexit {
		state.Flags |= executor.FlagErrexit
	}
	if cfg.Trace {
		state.Flags |= executor.FlagTrace
	}
}
