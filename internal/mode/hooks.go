package mode

import (
	"context"
	"time"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/quantmind-br/dpm/internal/security"
	"github.com/spf13/afero"
)

// DefaultHookTimeout bounds a single hook run
const DefaultHookTimeout = 60 * time.Second

// HookRunner executes mode-switch scripts with no arguments
type HookRunner struct {
	runner  helpers.CommandRunner
	fs      afero.Fs
	timeout time.Duration
}

// NewHookRunner creates a hook runner. A zero timeout uses DefaultHookTimeout.
func NewHookRunner(runner helpers.CommandRunner, fs afero.Fs, timeout time.Duration) *HookRunner {
	if timeout <= 0 {
		timeout = DefaultHookTimeout
	}
	return &HookRunner{runner: runner, fs: fs, timeout: timeout}
}

// Available reports whether path is an executable regular file
func (h *HookRunner) Available(path string) bool {
	if path == "" {
		return false
	}
	info, err := h.fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// Run executes the hook; a non-zero exit is returned as an error
func (h *HookRunner) Run(ctx context.Context, path string) error {
	if err := security.ValidateHookPath(path); err != nil {
		return core.WrapErrorf(err, core.CodeModeHookFailure, "invalid hook %s", path)
	}
	if !h.Available(path) {
		return core.NewErrorf(core.CodeModeHookFailure, "hook %s is missing or not executable", path)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if _, err := h.runner.RunCommand(ctx, path); err != nil {
		return core.WrapErrorf(err, core.CodeModeHookFailure, "hook %s failed (exit %d)", path, h.runner.GetExitCode(err))
	}
	return nil
}
