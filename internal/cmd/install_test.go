package cmd

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/db"
	"github.com/quantmind-br/dpm/internal/syspkg/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstallCmd(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	log := zerolog.New(io.Discard)

	cmd := NewInstallCmd(cfg, &log)

	assert.NotNil(t, cmd)
	assert.Equal(t, "install <package>", cmd.Use)
	assert.Equal(t, "Install a package", cmd.Short)
	for _, flag := range []string{"version", "force", "yes", "offline", "online", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestInstallCmd_Metapackage(t *testing.T) {
	b := suiteBackend()
	useBackend(t, b)
	cfg := testConfig(t)

	out, _, err := execute(t, NewInstallCmd, cfg, "mycompany-suite")
	require.NoError(t, err)

	assert.Contains(t, out, "install mycompany-suite completed")
	assert.Contains(t, out, "mycompany-cli")
	assert.Equal(t, []string{
		"install mycompany-cli=2.0",
		"install mycompany-suite=1.0",
		"mark-auto mycompany-cli",
	}, b.Calls())

	ctx := context.Background()
	journal, err := db.New(ctx, cfg.Paths.DBFile)
	require.NoError(t, err)
	defer journal.Close()

	ops, err := journal.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "mycompany-suite", ops[0].Package)
	assert.True(t, ops[0].Success)
}

func TestInstallCmd_JSONOutput(t *testing.T) {
	useBackend(t, suiteBackend())

	out, _, err := execute(t, NewInstallCmd, testConfig(t), "mycompany-suite", "--format", "json")
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "install", res["operation"])
	assert.Equal(t, "online", res["mode"])
}

func TestInstallCmd_UnknownPackage(t *testing.T) {
	b := acmeBackend()
	useBackend(t, b)

	_, errOut, err := execute(t, NewInstallCmd, testConfig(t), "acme-tool")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodePackageNotFound))
	assert.Equal(t, 1, core.ExitCode(err))
	assert.Contains(t, errOut, "did you mean: acme-tools")
	assert.Empty(t, b.Calls())
}

func TestInstallCmd_OfflineUsesPin(t *testing.T) {
	b := memory.New(memory.Entry{Name: "libbar", Versions: []string{"1.0", "2.0"}})
	useBackend(t, b)
	cfg := testConfig(t)
	cfg.PinnedVersions = map[string]string{"libbar": "1.0"}

	out, _, err := execute(t, NewInstallCmd, cfg, "libbar", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "offline mode")
	assert.Equal(t, []string{"install libbar=1.0"}, b.Calls())
}

func TestInstallCmd_ExplicitVersion(t *testing.T) {
	b := memory.New(memory.Entry{Name: "libbar", Versions: []string{"1.0", "2.0"}})
	useBackend(t, b)

	_, _, err := execute(t, NewInstallCmd, testConfig(t), "libbar", "--version", "1.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"install libbar=1.0"}, b.Calls())
}

func TestInstallCmd_InvalidInput(t *testing.T) {
	b := acmeBackend()
	useBackend(t, b)

	tests := []struct {
		name string
		args []string
	}{
		{"bad package name", []string{"Bad;Name"}},
		{"unknown format", []string{"libfoo", "--format", "xml"}},
		{"both modes", []string{"libfoo", "--offline", "--online"}},
		{"missing argument", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, NewInstallCmd, testConfig(t), tt.args...)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, b.Calls())
}

func TestInstallCmd_ConflictWithoutTerminal(t *testing.T) {
	b := memory.New(
		memory.Entry{Name: "alpha", Versions: []string{"1.0"}, Conflicts: []string{"beta"}},
		memory.Entry{Name: "beta", Installed: "1.0", Versions: []string{"1.0"}},
	)
	useBackend(t, b)

	out, _, err := execute(t, NewInstallCmd, testConfig(t), "alpha")
	require.Error(t, err)
	assert.Equal(t, core.ExitConfirmationRequired, core.ExitCode(err))
	assert.Contains(t, out, "remove beta (conflict)")
	assert.Empty(t, b.Calls())
}
