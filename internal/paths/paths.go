// Package paths resolves dpm's default file locations. XDG_CONFIG_HOME and
// XDG_DATA_HOME are honored when they hold absolute paths.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver computes default paths from HOME and the XDG variables
type Resolver struct {
	homeDir string
	getenv  func(string) string
}

// NewResolver creates a Resolver for the current user
func NewResolver() *Resolver {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		home = "."
	}
	return &Resolver{homeDir: home, getenv: os.Getenv}
}

// NewResolverWithHome creates a Resolver with an explicit home directory and
// environment lookup (useful for tests). A nil getenv sees an empty
// environment.
func NewResolverWithHome(homeDir string, getenv func(string) string) *Resolver {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Resolver{homeDir: homeDir, getenv: getenv}
}

// HomeDir returns the resolved home directory
func (r *Resolver) HomeDir() string {
	return r.homeDir
}

func (r *Resolver) xdg(name string, fallback ...string) string {
	if v := r.getenv(name); filepath.IsAbs(v) {
		return v
	}
	return filepath.Join(append([]string{r.homeDir}, fallback...)...)
}

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config
func (r *Resolver) ConfigHome() string {
	return r.xdg("XDG_CONFIG_HOME", ".config")
}

// DataHome returns $XDG_DATA_HOME or ~/.local/share
func (r *Resolver) DataHome() string {
	return r.xdg("XDG_DATA_HOME", ".local", "share")
}

// ConfigFile returns the default configuration file
func (r *Resolver) ConfigFile() string {
	return filepath.Join(r.ConfigHome(), "debian-package-manager", "config.json")
}

// DataDir returns the directory holding dpm's history and log
func (r *Resolver) DataDir() string {
	return filepath.Join(r.DataHome(), "dpm")
}

// DBFile returns the default operation history database
func (r *Resolver) DBFile() string {
	return filepath.Join(r.DataDir(), "history.db")
}

// LogFile returns the default log file
func (r *Resolver) LogFile() string {
	return filepath.Join(r.DataDir(), "dpm.log")
}

// Expand replaces a leading ~ with the home directory and expands
// environment variables
func (r *Resolver) Expand(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(r.homeDir, path[1:])
	}
	return os.Expand(path, r.getenv)
}
