package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_OpensJournal(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Paths.DBFile = filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	app, err := assemble(context.Background(), cfg, nopLogger(), appDeps{
		backend: acmeBackend(),
		runner:  &helpers.MockCommandRunner{},
		fs:      afero.NewOsFs(),
	})
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Journal)
	assert.Equal(t, cfg.Paths.DBFile, app.Journal.Path())
	assert.FileExists(t, cfg.Paths.DBFile)
	assert.NotNil(t, app.Engine)
	assert.NotNil(t, app.Modes)
}

func TestAssemble_UnusableJournalIsSkipped(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := testConfig(t)
	cfg.Paths.DBFile = filepath.Join(blocker, "history.db")

	app, err := assemble(context.Background(), cfg, nopLogger(), appDeps{
		backend: acmeBackend(),
		runner:  &helpers.MockCommandRunner{},
		fs:      afero.NewOsFs(),
	})
	require.NoError(t, err)
	assert.Nil(t, app.Journal)
	assert.NoError(t, app.Close())
}

func TestAssemble_ModeFromConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.OfflineMode = "offline"
	cfg.PinnedVersions = map[string]string{"libfoo": "1.0"}

	app, err := assemble(context.Background(), cfg, nopLogger(), appDeps{
		backend: acmeBackend(),
		runner:  &helpers.MockCommandRunner{},
		fs:      afero.NewOsFs(),
	})
	require.NoError(t, err)
	defer app.Close()

	offline, err := app.Modes.IsOfflineMode(context.Background())
	require.NoError(t, err)
	assert.True(t, offline)
	assert.Equal(t, map[string]string{"libfoo": "1.0"}, app.Modes.State().Pins())
}
