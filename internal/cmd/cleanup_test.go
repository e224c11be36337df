package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/syspkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orphanBackend() *memory.Backend {
	b := acmeBackend()
	b.Add(memory.Entry{Name: "libold", Installed: "1.0", Versions: []string{"1.0"}, Auto: true})
	return b
}

func TestCleanupCmd_NoSelectionShowsHelp(t *testing.T) {
	b := orphanBackend()
	useBackend(t, b)

	out, _, err := execute(t, NewCleanupCmd, testConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "--orphans")
	assert.Contains(t, out, "--offline-repos")
	assert.Empty(t, b.Calls())
}

func TestCleanupCmd_OrphansNeedConfirmation(t *testing.T) {
	b := orphanBackend()
	useBackend(t, b)

	out, _, err := execute(t, NewCleanupCmd, testConfig(t), "--orphans")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeConfirmationRequired))
	assert.Contains(t, out, "remove libold (auto-removable)")
	assert.Empty(t, b.Calls())

	cfg := testConfig(t)
	cfg.Cleanup.AptCacheDir = t.TempDir()
	out, _, err = execute(t, NewCleanupCmd, cfg, "--orphans", "--apt-cache", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleanup system completed")
	assert.Equal(t, []string{"remove libold", "autoclean"}, b.Calls())
}

func TestCleanupCmd_InteractiveApproval(t *testing.T) {
	b := orphanBackend()
	useBackend(t, b)
	isInteractive = func() bool { return true }

	var asked []string
	confirm = func(label string) (bool, error) {
		asked = append(asked, label)
		return true, nil
	}

	_, _, err := execute(t, NewCleanupCmd, testConfig(t), "--orphans")
	require.NoError(t, err)
	assert.Equal(t, []string{"Proceed with cleanup"}, asked)
	assert.Equal(t, []string{"remove libold"}, b.Calls())
}

func TestCleanupCmd_OfflineRepos(t *testing.T) {
	b := acmeBackend()
	useBackend(t, b)

	repo := t.TempDir()
	for name, size := range map[string]int{
		"acme-tools_1.0_amd64.deb": 300,
		"acme-tools_1.2_amd64.deb": 200,
		"acme-tools_1.0_arm64.deb": 100,
		"download.tmp":             50,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(repo, name), make([]byte, size), 0o644))
	}
	cfg := testConfig(t)
	cfg.Cleanup.OfflineRepos = []string{repo, filepath.Join(repo, "missing")}

	out, _, err := execute(t, NewCleanupCmd, cfg, "--offline-repos", "--format", "json")
	require.NoError(t, err)

	var res core.OperationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, core.OperationCleanup, res.Operation)
	assert.Equal(t, int64(350), res.FreedBytes)
	assert.ElementsMatch(t, []string{
		filepath.Join(repo, "acme-tools_1.0_amd64.deb"),
		filepath.Join(repo, "download.tmp"),
	}, res.CleanedPaths)

	left, err := os.ReadDir(repo)
	require.NoError(t, err)
	var names []string
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"acme-tools_1.0_arm64.deb", "acme-tools_1.2_amd64.deb"}, names)
	assert.Empty(t, b.Calls())
}
