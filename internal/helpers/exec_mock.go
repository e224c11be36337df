package helpers

import (
	"context"
	"strings"
	"sync"
)

// MockCommandRunner is a mock implementation of CommandRunner for testing.
// Every invocation is recorded in Calls as "name arg1 arg2".
type MockCommandRunner struct {
	CommandExistsFunc        func(name string) bool
	RequireCommandFunc       func(name string) error
	RunCommandFunc           func(ctx context.Context, name string, args ...string) (string, error)
	RunCommandWithOutputFunc func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
	RunPrivilegedFunc        func(ctx context.Context, name string, args ...string) (string, error)
	GetExitCodeFunc          func(err error) int

	mu    sync.Mutex
	Calls []string
}

func (m *MockCommandRunner) record(prefix, name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, strings.TrimSpace(prefix+strings.Join(append([]string{name}, args...), " ")))
}

// Recorded returns a copy of the recorded calls
func (m *MockCommandRunner) Recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// CommandExists implements CommandRunner.CommandExists
func (m *MockCommandRunner) CommandExists(name string) bool {
	if m.CommandExistsFunc != nil {
		return m.CommandExistsFunc(name)
	}
	return false
}

// RequireCommand implements CommandRunner.RequireCommand
func (m *MockCommandRunner) RequireCommand(name string) error {
	if m.RequireCommandFunc != nil {
		return m.RequireCommandFunc(name)
	}
	return nil
}

// RunCommand implements CommandRunner.RunCommand
func (m *MockCommandRunner) RunCommand(ctx context.Context, name string, args ...string) (string, error) {
	m.record("", name, args)
	if m.RunCommandFunc != nil {
		return m.RunCommandFunc(ctx, name, args...)
	}
	return "", nil
}

// RunCommandWithOutput implements CommandRunner.RunCommandWithOutput
func (m *MockCommandRunner) RunCommandWithOutput(ctx context.Context, name string, args ...string) (stdout, stderr string, err error) {
	m.record("", name, args)
	if m.RunCommandWithOutputFunc != nil {
		return m.RunCommandWithOutputFunc(ctx, name, args...)
	}
	return "", "", nil
}

// RunPrivileged implements CommandRunner.RunPrivileged. Calls are recorded
// with a "sudo " prefix; without RunPrivilegedFunc it falls through to
// RunCommandFunc so one stub can serve both paths.
func (m *MockCommandRunner) RunPrivileged(ctx context.Context, name string, args ...string) (string, error) {
	m.record("sudo ", name, args)
	if m.RunPrivilegedFunc != nil {
		return m.RunPrivilegedFunc(ctx, name, args...)
	}
	if m.RunCommandFunc != nil {
		return m.RunCommandFunc(ctx, name, args...)
	}
	return "", nil
}

// GetExitCode implements CommandRunner.GetExitCode
func (m *MockCommandRunner) GetExitCode(err error) int {
	if m.GetExitCodeFunc != nil {
		return m.GetExitCodeFunc(err)
	}
	return ExitCode(err)
}
