package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/quantmind-br/dpm/internal/syspkg/memory"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// testConfig returns a config with a journal in a temp dir
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		CustomPrefixes:            []string{"acme-", "mycompany-"},
		ForceConfirmationRequired: true,
		AutoResolveConflicts:      true,
		Paths: config.PathsConfig{
			DataDir: dir,
			DBFile:  filepath.Join(dir, "history.db"),
		},
	}
}

// useBackend makes every command in the test run against b. Tests that
// call it must not run in parallel.
func useBackend(t *testing.T, b *memory.Backend) {
	t.Helper()
	prevApp, prevInteractive := newApp, isInteractive
	prevConfirm, prevDangerous := confirm, confirmDangerous

	newApp = func(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*App, error) {
		return assemble(ctx, cfg, log, appDeps{
			backend: b,
			runner:  &helpers.MockCommandRunner{CommandExistsFunc: func(string) bool { return true }},
			fs:      afero.NewOsFs(),
		})
	}
	isInteractive = func() bool { return false }

	t.Cleanup(func() {
		newApp, isInteractive = prevApp, prevInteractive
		confirm, confirmDangerous = prevConfirm, prevDangerous
		ui.SetOutput(nil, nil)
	})
}

// execute runs a command built by newCmd and returns what it wrote to
// stdout and stderr
func execute(t *testing.T, newCmd func(*config.Config, *zerolog.Logger) *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	log := zerolog.New(io.Discard)
	cmd := newCmd(cfg, &log)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func acmeBackend() *memory.Backend {
	return memory.New(
		memory.Entry{Name: "libc6", Installed: "2.36", Versions: []string{"2.36"}},
		memory.Entry{Name: "libfoo", Installed: "1.0", Versions: []string{"1.0"}, Depends: []core.Dependency{memory.Dep("libc6")}},
		memory.Entry{Name: "acme-tools", Installed: "1.0", Versions: []string{"1.0"}, Depends: []core.Dependency{memory.Dep("libfoo"), memory.Dep("libacme")}},
		memory.Entry{Name: "libacme", Installed: "0.5", Versions: []string{"0.5"}, Auto: true},
		memory.Entry{Name: "acme-extra", Installed: "1.0", Versions: []string{"1.0"}, Depends: []core.Dependency{memory.Dep("acme-tools")}},
	)
}

func suiteBackend() *memory.Backend {
	return memory.New(
		memory.Entry{Name: "mycompany-suite", Versions: []string{"1.0"}, Meta: true, Depends: []core.Dependency{
			memory.Dep("mycompany-cli"), memory.DepOn("libfoo", core.OpGreaterEq, "1.0"),
		}},
		memory.Entry{Name: "mycompany-cli", Versions: []string{"2.0"}, Depends: []core.Dependency{memory.Dep("libfoo")}},
		memory.Entry{Name: "libfoo", Installed: "1.0", Versions: []string{"1.0"}},
	)
}

func nopLogger() *zerolog.Logger {
	log := zerolog.New(io.Discard)
	return &log
}
