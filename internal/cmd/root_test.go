package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()
	logger := zerolog.New(io.Discard)
	cfg := &config.Config{}

	cmd := NewRootCmd(cfg, &logger, "1.0.0")

	assert.NotNil(t, cmd)
	assert.Equal(t, "dpm", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"install", "remove", "list", "info", "mode", "health", "fix", "cleanup", "history", "config", "completion", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_ConfigFlagReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, `{
  "custom_prefixes": ["corp-"],
  "pinned_versions": {"libssl3": "3.0.11-1"},
  "paths": {"db_file": "`+filepath.Join(dir, "history.db")+`", "log_file": "`+filepath.Join(dir, "dpm.log")+`"}
}`)

	cfg := &config.Config{CustomPrefixes: []string{"acme-"}}
	log := zerolog.New(io.Discard)
	root := NewRootCmd(cfg, &log, "test")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"config", "--config", path, "--format", "json"})
	require.NoError(t, root.Execute())

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []interface{}{"corp-"}, got["custom_prefixes"])
	assert.Equal(t, map[string]interface{}{"libssl3": "3.0.11-1"}, got["pinned_versions"])
	assert.Equal(t, path, cfg.File)
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	path := writeConfigFile(t, `{"custom_prefixes": ["Bad Prefix"]}`)

	root := NewRootCmd(&config.Config{}, nopLogger(), "test")
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"version", "--config", path})

	assert.Error(t, root.Execute())
}
