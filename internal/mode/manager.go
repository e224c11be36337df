package mode

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/debver"
	"github.com/rs/zerolog"
)

// HookExecutor runs mode-switch hook scripts
type HookExecutor interface {
	Run(ctx context.Context, path string) error
	Available(path string) bool
}

// Checker checks repository reachability. Unreachable networks are reported
// with an error matching ErrUnreachable; any other error is a fault.
type Checker interface {
	Check(ctx context.Context) error
}

// Persister writes the mode setting back to configuration
type Persister interface {
	SaveModeSetting(setting core.ModeSetting) error
}

// VersionSource lists the versions a backend knows for a package
type VersionSource interface {
	AvailableVersions(ctx context.Context, name string) ([]string, error)
}

// Options configures a Manager. Nil collaborators disable the matching
// behavior.
type Options struct {
	Setting     core.ModeSetting
	OfflineHook string
	OnlineHook  string
	Hooks       HookExecutor
	Checker     Checker
	Persister   Persister
	Logger      *zerolog.Logger
}

// Manager is the single writer of State
type Manager struct {
	mu      sync.Mutex
	state   *State
	setting core.ModeSetting
	opts    Options
	log     *zerolog.Logger
}

// NewManager creates a mode manager over state
func NewManager(state *State, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	setting := opts.Setting
	if setting == "" {
		setting = core.SettingFor(modeOf(state.Offline()))
	}
	return &Manager{state: state, setting: setting, opts: opts, log: log}
}

func modeOf(offline bool) core.Mode {
	if offline {
		return core.ModeOffline
	}
	return core.ModeOnline
}

// State returns the managed state
func (m *Manager) State() *State {
	return m.state
}

// Setting returns the configured setting
func (m *Manager) Setting() core.ModeSetting {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setting
}

// SwitchResult describes a completed mode switch
type SwitchResult struct {
	Mode     core.Mode `json:"mode" yaml:"mode"`
	Hook     string    `json:"hook,omitempty" yaml:"hook,omitempty"`
	Warnings []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// SwitchTo runs the hook for target, flips the state and persists the
// setting. A failing hook is reported as a warning; the flip still happens.
func (m *Manager) SwitchTo(ctx context.Context, target core.Mode) (*SwitchResult, error) {
	if target != core.ModeOnline && target != core.ModeOffline {
		return nil, core.NewErrorf(core.CodeInvalidInput, "unknown mode %q", target)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hook := m.opts.OnlineHook
	if target == core.ModeOffline {
		hook = m.opts.OfflineHook
	}

	result := &SwitchResult{Mode: target, Hook: hook}
	if hook != "" && m.opts.Hooks != nil {
		if err := m.opts.Hooks.Run(ctx, hook); err != nil {
			herr := core.WrapErrorf(err, core.CodeModeHookFailure, "%s hook", target)
			m.log.Warn().Err(err).Str("hook", hook).Msg("mode hook failed")
			result.Warnings = append(result.Warnings, herr.Error())
		}
	}

	m.state.setOffline(target == core.ModeOffline)
	m.setting = core.SettingFor(target)
	m.log.Info().Str("mode", string(target)).Msg("mode switched")

	if err := m.persist(m.setting); err != nil {
		return result, err
	}
	return result, nil
}

// SetAuto makes future IsOfflineMode calls follow detection
func (m *Manager) SetAuto() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setting = core.SettingAuto
	return m.persist(m.setting)
}

func (m *Manager) persist(setting core.ModeSetting) error {
	if m.opts.Persister == nil {
		return nil
	}
	if err := m.opts.Persister.SaveModeSetting(setting); err != nil {
		return core.WrapError(err, core.CodeConfig, "persist mode setting")
	}
	return nil
}

// DetectAuto checks reachability: online when reachable, offline when the
// network is unreachable. Other check errors are returned.
func (m *Manager) DetectAuto(ctx context.Context) (core.Mode, error) {
	if m.opts.Checker == nil {
		return "", core.NewError(core.CodeConfig, "auto mode needs a network checker")
	}

	err := m.opts.Checker.Check(ctx)
	switch {
	case err == nil:
		return core.ModeOnline, nil
	case IsUnreachable(err):
		m.log.Debug().Err(err).Msg("repositories unreachable, using offline mode")
		return core.ModeOffline, nil
	default:
		return "", fmt.Errorf("detect mode: %w", err)
	}
}

// IsOfflineMode returns the explicit setting, or detection when "auto"
func (m *Manager) IsOfflineMode(ctx context.Context) (bool, error) {
	switch m.Setting() {
	case core.SettingOffline:
		return true, nil
	case core.SettingOnline:
		return false, nil
	}

	detected, err := m.DetectAuto(ctx)
	if err != nil {
		return false, err
	}
	return detected == core.ModeOffline, nil
}

// HookStatus describes one configured hook
type HookStatus struct {
	Path      string `json:"path" yaml:"path"`
	Available bool   `json:"available" yaml:"available"`
}

// Status is the report behind "mode --status"
type Status struct {
	Setting     core.ModeSetting `json:"setting" yaml:"setting"`
	Mode        core.Mode        `json:"mode,omitempty" yaml:"mode,omitempty"`
	DetectError string           `json:"detect_error,omitempty" yaml:"detect_error,omitempty"`
	Pinned      int              `json:"pinned" yaml:"pinned"`
	OfflineHook *HookStatus      `json:"offline_hook,omitempty" yaml:"offline_hook,omitempty"`
	OnlineHook  *HookStatus      `json:"online_hook,omitempty" yaml:"online_hook,omitempty"`
}

// Status reports the setting, effective mode, pin count and hooks
func (m *Manager) Status(ctx context.Context) *Status {
	st := &Status{
		Setting:     m.Setting(),
		Pinned:      len(m.state.Pins()),
		OfflineHook: m.hookStatus(m.opts.OfflineHook),
		OnlineHook:  m.hookStatus(m.opts.OnlineHook),
	}

	offline, err := m.IsOfflineMode(ctx)
	if err != nil {
		st.DetectError = err.Error()
		return st
	}
	st.Mode = modeOf(offline)
	return st
}

func (m *Manager) hookStatus(path string) *HookStatus {
	if path == "" {
		return nil
	}
	hs := &HookStatus{Path: path}
	if m.opts.Hooks != nil {
		hs.Available = m.opts.Hooks.Available(path)
	}
	return hs
}

// PinIssue is a pinned version the backend cannot provide
type PinIssue struct {
	Package string `json:"package" yaml:"package"`
	Version string `json:"version" yaml:"version"`
	Reason  string `json:"reason" yaml:"reason"`
}

// ValidatePins checks every pin against the versions the backend knows
func (m *Manager) ValidatePins(ctx context.Context, src VersionSource) ([]PinIssue, error) {
	pins := m.state.Pins()
	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []PinIssue
	for _, name := range names {
		version := pins[name]
		if _, err := debver.Parse(version); err != nil {
			issues = append(issues, PinIssue{Package: name, Version: version, Reason: err.Error()})
			continue
		}

		available, err := src.AvailableVersions(ctx, name)
		if core.IsCode(err, core.CodePackageNotFound) {
			issues = append(issues, PinIssue{Package: name, Version: version, Reason: "package unknown to backend"})
			continue
		}
		if err != nil {
			return issues, err
		}
		if !containsVersion(available, version) {
			issues = append(issues, PinIssue{Package: name, Version: version, Reason: "version not available"})
		}
	}
	return issues, nil
}

func containsVersion(versions []string, want string) bool {
	for _, v := range versions {
		if debver.Compare(v, want) == 0 {
			return true
		}
	}
	return false
}
