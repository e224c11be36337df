package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/quantmind-br/dpm/internal/mode"
	"github.com/quantmind-br/dpm/internal/paths"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/security"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvConfigPath overrides the config file location
const EnvConfigPath = "DPM_CONFIG"

// Config represents the application configuration
type Config struct {
	CustomPrefixes            []string          `mapstructure:"custom_prefixes" json:"custom_prefixes" yaml:"custom_prefixes"`
	RemovablePackages         []string          `mapstructure:"removable_packages" json:"removable_packages" yaml:"removable_packages"`
	ProtectedPackages         []string          `mapstructure:"protected_packages" json:"protected_packages" yaml:"protected_packages"`
	OfflineMode               core.ModeSetting  `mapstructure:"offline_mode" json:"offline_mode" yaml:"offline_mode"`
	PinnedVersions            map[string]string `mapstructure:"pinned_versions" json:"pinned_versions" yaml:"pinned_versions"`
	ForceConfirmationRequired bool              `mapstructure:"force_confirmation_required" json:"force_confirmation_required" yaml:"force_confirmation_required"`
	AutoResolveConflicts      bool              `mapstructure:"auto_resolve_conflicts" json:"auto_resolve_conflicts" yaml:"auto_resolve_conflicts"`

	Resolver ResolverConfig `mapstructure:"resolver" json:"resolver" yaml:"resolver"`
	Hooks    HooksConfig    `mapstructure:"hooks" json:"hooks" yaml:"hooks"`
	Network  NetworkConfig  `mapstructure:"network" json:"network" yaml:"network"`
	Paths    PathsConfig    `mapstructure:"paths" json:"paths" yaml:"paths"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup" json:"cleanup" yaml:"cleanup"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging" yaml:"logging"`

	// File is the path the configuration was loaded from
	File string `mapstructure:"-" json:"-" yaml:"-"`
}

// ResolverConfig tunes dependency resolution
type ResolverConfig struct {
	MaxDepth int      `mapstructure:"max_depth" json:"max_depth" yaml:"max_depth"`
	TieBreak []string `mapstructure:"tie_break" json:"tie_break" yaml:"tie_break"`
}

// HooksConfig names the scripts run on mode switches
type HooksConfig struct {
	Offline string        `mapstructure:"offline" json:"offline" yaml:"offline"`
	Online  string        `mapstructure:"online" json:"online" yaml:"online"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// NetworkConfig controls auto mode detection
type NetworkConfig struct {
	CheckURLs    []string      `mapstructure:"check_urls" json:"check_urls" yaml:"check_urls"`
	CheckTimeout time.Duration `mapstructure:"check_timeout" json:"check_timeout" yaml:"check_timeout"`
}

// PathsConfig contains path-related configuration
type PathsConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir" yaml:"data_dir"`
	DBFile  string `mapstructure:"db_file" json:"db_file" yaml:"db_file"`
	LogFile string `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
}

// CleanupConfig names the directories "dpm cleanup" reclaims space from
type CleanupConfig struct {
	AptCacheDir  string   `mapstructure:"apt_cache_dir" json:"apt_cache_dir" yaml:"apt_cache_dir"`
	OfflineRepos []string `mapstructure:"offline_repos" json:"offline_repos" yaml:"offline_repos"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
	Color string `mapstructure:"color" json:"color" yaml:"color"`
}

// DefaultPath is $XDG_CONFIG_HOME/debian-package-manager/config.json,
// falling back to ~/.config
func DefaultPath() string {
	return paths.NewResolver().ConfigFile()
}

// ResolvePath picks the config file: the explicit path, then DPM_CONFIG,
// then DefaultPath
func ResolvePath(explicit string) string {
	if explicit != "" {
		return expandPath(explicit)
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return expandPath(env)
	}
	return DefaultPath()
}

// Load reads the configuration at path (see ResolvePath) from fs. A
// missing file yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	path = ResolvePath(path)

	// package names in pinned_versions contain dots
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	v.SetEnvPrefix("DPM")
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	v.AutomaticEnv()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, core.WrapErrorf(err, core.CodeConfig, "stat config %s", path)
	}
	if exists {
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapErrorf(err, core.CodeConfig, "read config %s", path)
		}
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		modeSettingHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, core.WrapError(err, core.CodeConfig, "unmarshal config")
	}

	cfg.File = path
	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir)
	cfg.Paths.DBFile = expandPath(cfg.Paths.DBFile)
	cfg.Paths.LogFile = expandPath(cfg.Paths.LogFile)
	cfg.Hooks.Offline = expandPath(cfg.Hooks.Offline)
	cfg.Hooks.Online = expandPath(cfg.Hooks.Online)
	cfg.Cleanup.AptCacheDir = expandPath(cfg.Cleanup.AptCacheDir)
	for i, repo := range cfg.Cleanup.OfflineRepos {
		cfg.Cleanup.OfflineRepos[i] = expandPath(repo)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside an operation
func (c *Config) Validate() error {
	for _, prefix := range c.CustomPrefixes {
		if err := security.ValidatePrefix(prefix); err != nil {
			return core.WrapError(err, core.CodeConfig, "custom_prefixes")
		}
	}
	for _, list := range [][]string{c.RemovablePackages, c.ProtectedPackages} {
		for _, name := range list {
			if err := security.ValidatePackageName(name); err != nil {
				return core.WrapError(err, core.CodeConfig, "package list")
			}
		}
	}
	if err := security.ValidatePins(c.PinnedVersions); err != nil {
		return core.WrapError(err, core.CodeConfig, "pinned_versions")
	}
	if err := resolver.ValidateTieBreak(c.Resolver.TieBreak); err != nil {
		return core.WrapError(err, core.CodeConfig, "resolver.tie_break")
	}
	if c.Resolver.MaxDepth < 0 {
		return core.NewError(core.CodeConfig, "resolver.max_depth must not be negative")
	}
	for _, hook := range []string{c.Hooks.Offline, c.Hooks.Online} {
		if hook == "" {
			continue
		}
		if err := security.ValidateHookPath(hook); err != nil {
			return core.WrapError(err, core.CodeConfig, "hooks")
		}
	}
	for _, dir := range append([]string{c.Cleanup.AptCacheDir}, c.Cleanup.OfflineRepos...) {
		if dir != "" && !filepath.IsAbs(dir) {
			return core.NewErrorf(core.CodeConfig, "cleanup: %q is not an absolute path", dir)
		}
	}
	return nil
}

// modeSettingHook decodes offline_mode from true, false or "auto"
func modeSettingHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(core.ModeSetting(""))
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case nil:
			return core.SettingOnline, nil
		case bool:
			if v {
				return core.SettingOffline, nil
			}
			return core.SettingOnline, nil
		case string:
			return core.ParseModeSetting(v)
		case core.ModeSetting:
			return core.ParseModeSetting(string(v))
		default:
			return nil, fmt.Errorf("offline_mode: unsupported value %v", data)
		}
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	dirs := paths.NewResolver()

	v.SetDefault("custom_prefixes", []string{})
	v.SetDefault("removable_packages", []string{})
	v.SetDefault("protected_packages", []string{})
	v.SetDefault("offline_mode", false)
	v.SetDefault("pinned_versions", map[string]string{})
	v.SetDefault("force_confirmation_required", true)
	v.SetDefault("auto_resolve_conflicts", true)

	v.SetDefault("resolver::max_depth", 0)
	v.SetDefault("resolver::tie_break", resolver.DefaultTieBreak)

	v.SetDefault("hooks::offline", "")
	v.SetDefault("hooks::online", "")
	v.SetDefault("hooks::timeout", mode.DefaultHookTimeout.String())

	v.SetDefault("network::check_urls", mode.DefaultCheckURLs)
	v.SetDefault("network::check_timeout", "5s")

	v.SetDefault("paths::data_dir", dirs.DataDir())
	v.SetDefault("paths::db_file", dirs.DBFile())
	v.SetDefault("paths::log_file", dirs.LogFile())

	v.SetDefault("cleanup::apt_cache_dir", engine.DefaultAptCacheDir)
	v.SetDefault("cleanup::offline_repos", engine.DefaultOfflineRepos)

	v.SetDefault("logging::level", "info")
	v.SetDefault("logging::color", "auto")
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	return paths.NewResolver().Expand(path)
}
