package cmd

import (
	"encoding/json"
	"testing"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/db"
	"github.com/quantmind-br/dpm/internal/syspkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCmd_ListsOperations(t *testing.T) {
	b := memory.New(
		memory.Entry{Name: "acme-cli", Versions: []string{"1.0"}},
		memory.Entry{Name: "acme-docs", Versions: []string{"1.0"}},
	)
	useBackend(t, b)
	cfg := testConfig(t)

	_, _, err := execute(t, NewInstallCmd, cfg, "acme-cli")
	require.NoError(t, err)
	_, _, err = execute(t, NewInstallCmd, cfg, "acme-docs")
	require.NoError(t, err)

	out, _, err := execute(t, NewHistoryCmd, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "acme-cli")
	assert.Contains(t, out, "acme-docs")

	out, _, err = execute(t, NewHistoryCmd, cfg, "--package", "acme-docs", "--format", "json")
	require.NoError(t, err)
	var ops []db.Operation
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "install", ops[0].Operation)
	assert.Equal(t, "acme-docs", ops[0].Package)

	out, _, err = execute(t, NewHistoryCmd, cfg, "--limit", "1", "--format", "json")
	require.NoError(t, err)
	ops = nil
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "acme-docs", ops[0].Package, "newest first")
}

func TestHistoryCmd_Prune(t *testing.T) {
	b := memory.New(memory.Entry{Name: "acme-cli", Installed: "1.0", Versions: []string{"1.0"}})
	useBackend(t, b)
	cfg := testConfig(t)

	for i := 0; i < 3; i++ {
		_, _, err := execute(t, NewInstallCmd, cfg, "acme-cli")
		require.NoError(t, err)
	}

	out, _, err := execute(t, NewHistoryCmd, cfg, "--prune", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 2 old operation(s)")

	out, _, err = execute(t, NewHistoryCmd, cfg, "--format", "json")
	require.NoError(t, err)
	var ops []db.Operation
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	assert.Len(t, ops, 1)
}

func TestHistoryCmd_Empty(t *testing.T) {
	useBackend(t, acmeBackend())

	out, _, err := execute(t, NewHistoryCmd, testConfig(t), "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestHistoryCmd_NoJournal(t *testing.T) {
	useBackend(t, acmeBackend())
	cfg := testConfig(t)
	cfg.Paths.DBFile = ""

	_, _, err := execute(t, NewHistoryCmd, cfg)
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeConfig))
}
