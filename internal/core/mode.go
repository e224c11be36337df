package core

import (
	"fmt"
	"maps"
	"strings"
)

// Mode is the operating mode of the version policy
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ModeSetting is the configured mode, which may defer to detection
type ModeSetting string

const (
	SettingOnline  ModeSetting = "online"
	SettingOffline ModeSetting = "offline"
	SettingAuto    ModeSetting = "auto"
)

// ParseModeSetting accepts the names above plus "true"/"false" as written
// by the offline_mode key
func ParseModeSetting(s string) (ModeSetting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "offline", "true":
		return SettingOffline, nil
	case "online", "false", "":
		return SettingOnline, nil
	case "auto":
		return SettingAuto, nil
	default:
		return "", fmt.Errorf("invalid mode setting %q: want true, false or auto", s)
	}
}

// SettingFor returns the explicit setting matching a mode
func SettingFor(m Mode) ModeSetting {
	if m == ModeOffline {
		return SettingOffline
	}
	return SettingOnline
}

// ModeSnapshot is an immutable copy of the mode state taken per operation
type ModeSnapshot struct {
	Offline   bool
	Pinned    map[string]string
	Protected map[string]struct{}
}

// Mode returns the snapshot's mode
func (s ModeSnapshot) Mode() Mode {
	if s.Offline {
		return ModeOffline
	}
	return ModeOnline
}

// PinnedVersion looks up the pin for name
func (s ModeSnapshot) PinnedVersion(name string) (string, bool) {
	v, ok := s.Pinned[name]
	return v, ok && v != ""
}

// IsProtected reports whether the state marks name as protected
func (s ModeSnapshot) IsProtected(name string) bool {
	_, ok := s.Protected[name]
	return ok
}

// WithOffline returns a copy with the offline flag replaced
func (s ModeSnapshot) WithOffline(offline bool) ModeSnapshot {
	return ModeSnapshot{
		Offline:   offline,
		Pinned:    maps.Clone(s.Pinned),
		Protected: maps.Clone(s.Protected),
	}
}
