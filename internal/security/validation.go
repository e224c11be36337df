package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/debver"
)

const (
	maxPackageNameLen = 255
	maxVersionLen     = 128
	maxPathLen        = 4096
)

var (
	// ValidPackageNameRegex follows Debian policy: lowercase letters,
	// digits and + - . with at least two characters, starting alphanumeric
	ValidPackageNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

	// ValidPrefixRegex accepts any leading part of a valid package name
	ValidPrefixRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]*$`)

	// DangerousPathPatterns contains patterns that should not appear in paths
	DangerousPathPatterns = []string{
		"..",
		"~",
		"$",
		"`",
		"|",
		"&",
		";",
		"\n",
		"\r",
		"\x00",
	}
)

func invalid(format string, args ...interface{}) error {
	return core.NewErrorf(core.CodeInvalidInput, format, args...)
}

// ValidatePackageName checks name against Debian package naming rules.
// Names go straight into apt/dpkg argument lists.
func ValidatePackageName(name string) error {
	if name == "" {
		return invalid("package name cannot be empty")
	}
	if len(name) > maxPackageNameLen {
		return invalid("package name too long (max %d characters)", maxPackageNameLen)
	}
	if strings.HasPrefix(name, "-") {
		return invalid("package name %q looks like an option", name)
	}
	if !ValidPackageNameRegex.MatchString(name) {
		return invalid("invalid package name %q: use lowercase letters, digits, '+', '-' and '.'", name)
	}
	return nil
}

// ValidateVersion checks that version is a well-formed Debian version
func ValidateVersion(version string) error {
	if version == "" {
		return invalid("version cannot be empty")
	}
	if len(version) > maxVersionLen {
		return invalid("version string too long (max %d characters)", maxVersionLen)
	}
	for _, pattern := range []string{"/", "\\", ";", "&", "|", "`", "$", " ", "\n", "\r", "\x00"} {
		if strings.Contains(version, pattern) {
			return invalid("invalid version %q: contains %q", version, pattern)
		}
	}
	if _, err := debver.Parse(version); err != nil {
		return core.WrapErrorf(err, core.CodeInvalidInput, "invalid version %q", version)
	}
	return nil
}

// ValidatePrefix checks a configured custom-package prefix
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return invalid("custom prefix cannot be empty")
	}
	if !ValidPrefixRegex.MatchString(prefix) {
		return invalid("invalid custom prefix %q", prefix)
	}
	return nil
}

// ValidateHookPath checks a mode-switch hook path. Hooks are executed
// directly, so the path must be absolute and free of shell metacharacters.
func ValidateHookPath(path string) error {
	if path == "" {
		return invalid("hook path cannot be empty")
	}
	if len(path) >= maxPathLen {
		return invalid("hook path too long (max %d characters)", maxPathLen)
	}
	for _, pattern := range DangerousPathPatterns {
		if strings.Contains(path, pattern) {
			return invalid("hook path contains dangerous pattern: %q", pattern)
		}
	}
	if !filepath.IsAbs(path) {
		return invalid("hook path %q must be absolute", path)
	}
	if filepath.Clean(path) != path {
		return invalid("hook path %q is not clean", path)
	}
	return nil
}

// ValidatePins checks every entry of a pinned-version table
func ValidatePins(pins map[string]string) error {
	for name, version := range pins {
		if err := ValidatePackageName(name); err != nil {
			return fmt.Errorf("pinned_versions: %w", err)
		}
		if err := ValidateVersion(version); err != nil {
			return fmt.Errorf("pinned_versions[%s]: %w", name, err)
		}
	}
	return nil
}
