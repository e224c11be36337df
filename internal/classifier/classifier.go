package classifier

import (
	"sort"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
)

// builtinProtected can never be removed, whatever the configuration says
var builtinProtected = []string{
	"apt",
	"base-files",
	"base-passwd",
	"bash",
	"coreutils",
	"dash",
	"dpkg",
	"grub-common",
	"init",
	"libc-bin",
	"libc6",
	"libsystemd0",
	"linux-image-generic",
	"login",
	"mount",
	"passwd",
	"sudo",
	"systemd",
	"systemd-sysv",
	"util-linux",
}

// BuiltinProtected returns a copy of the built-in protected floor
func BuiltinProtected() []string {
	out := make([]string, len(builtinProtected))
	copy(out, builtinProtected)
	return out
}

// Classifier decides custom/system/metapackage and protection for names
type Classifier struct {
	prefixes  []string
	protected map[string]struct{}
	removable map[string]struct{}
}

// New creates a classifier. The built-in floor is always added to protected.
func New(prefixes, protected, removable []string) *Classifier {
	c := &Classifier{
		protected: make(map[string]struct{}, len(protected)+len(builtinProtected)),
		removable: make(map[string]struct{}, len(removable)),
	}
	for _, p := range prefixes {
		if p != "" {
			c.prefixes = append(c.prefixes, p)
		}
	}
	for _, name := range builtinProtected {
		c.protected[name] = struct{}{}
	}
	for _, name := range protected {
		c.protected[name] = struct{}{}
	}
	for _, name := range removable {
		c.removable[name] = struct{}{}
	}
	return c
}

// IsCustom reports whether name starts with any configured prefix
func (c *Classifier) IsCustom(name string) bool {
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// IsProtected reports whether name is configured or built-in protected
func (c *Classifier) IsProtected(name string) bool {
	_, ok := c.protected[name]
	return ok
}

// IsRemovable reports whether name is on the removable-packages list
func (c *Classifier) IsRemovable(name string) bool {
	_, ok := c.removable[name]
	return ok
}

// Type classifies a backend snapshot. Metapackage wins over custom.
func (c *Classifier) Type(pkg core.Package) core.PackageType {
	switch {
	case pkg.IsMetapackage:
		return core.PackageTypeMetapackage
	case c.IsCustom(pkg.Name):
		return core.PackageTypeCustom
	default:
		return core.PackageTypeSystem
	}
}

// Annotate returns pkg with IsCustom filled in from the prefix list
func (c *Classifier) Annotate(pkg core.Package) core.Package {
	pkg = pkg.Clone()
	pkg.IsCustom = c.IsCustom(pkg.Name)
	return pkg
}

// RemovalRisk rates removing pkg
func (c *Classifier) RemovalRisk(pkg core.Package) core.RiskLevel {
	switch {
	case c.IsProtected(pkg.Name):
		return core.RiskHigh
	case c.Type(pkg) == core.PackageTypeSystem:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}

// Group splits packages by type with names sorted inside each bucket
func (c *Classifier) Group(pkgs []core.Package) core.ImpactGroup {
	var g core.ImpactGroup
	for _, pkg := range pkgs {
		switch c.Type(pkg) {
		case core.PackageTypeMetapackage:
			g.Metapackage = append(g.Metapackage, pkg.Name)
		case core.PackageTypeCustom:
			g.Custom = append(g.Custom, pkg.Name)
		default:
			g.System = append(g.System, pkg.Name)
		}
	}
	sort.Strings(g.Metapackage)
	sort.Strings(g.Custom)
	sort.Strings(g.System)
	return g
}

// HighestRisk returns the worst removal risk among pkgs
func (c *Classifier) HighestRisk(pkgs []core.Package) core.RiskLevel {
	risk := core.RiskLow
	for _, pkg := range pkgs {
		switch c.RemovalRisk(pkg) {
		case core.RiskHigh:
			return core.RiskHigh
		case core.RiskMedium:
			risk = core.RiskMedium
		}
	}
	return risk
}
