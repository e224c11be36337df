package core

import (
	"fmt"
	"slices"
)

// Operation names a top-level engine operation
type Operation string

const (
	OperationInstall   Operation = "install"
	OperationRemove    Operation = "remove"
	OperationFixBroken Operation = "fix-broken"
	OperationCleanup   Operation = "cleanup"
)

// RemovalReason explains why a package landed in ToRemove
type RemovalReason string

const (
	RemovalExplicit      RemovalReason = "explicit"
	RemovalDependent     RemovalReason = "dependent"
	RemovalAutoRemovable RemovalReason = "auto-removable"
	RemovalConflict      RemovalReason = "conflict"
)

// ForceLevel selects how far the backend may bypass its own checks
type ForceLevel string

const (
	ForceNone    ForceLevel = "none"
	ForceDepends ForceLevel = "depends"
	ForceAll     ForceLevel = "all"
)

// Rank orders force levels from least to most permissive
func (f ForceLevel) Rank() int {
	switch f {
	case ForceDepends:
		return 1
	case ForceAll:
		return 2
	default:
		return 0
	}
}

// Max returns the more permissive of the two levels
func (f ForceLevel) Max(other ForceLevel) ForceLevel {
	if other.Rank() > f.Rank() {
		return other
	}
	if f == "" {
		return ForceNone
	}
	return f
}

// DependencyPlan is the resolver's output for one request.
// It is built once and treated as read-only afterwards.
type DependencyPlan struct {
	Operation Operation                `json:"operation" yaml:"operation"`
	Requested []string                 `json:"requested" yaml:"requested"`
	ToInstall []Package                `json:"to_install" yaml:"to_install"`
	ToRemove  []Package                `json:"to_remove" yaml:"to_remove"`
	ToUpgrade []Package                `json:"to_upgrade" yaml:"to_upgrade"`
	Conflicts []Conflict               `json:"conflicts" yaml:"conflicts"`
	Reasons   map[string]RemovalReason `json:"removal_reasons,omitempty" yaml:"removal_reasons,omitempty"`

	// Blockers make the plan unsatisfiable without an override
	Blockers []string `json:"blockers,omitempty" yaml:"blockers,omitempty"`
	// Retained lists installed packages deliberately left in place that will
	// lose a dependency or that protection kept out of ToRemove
	Retained []string `json:"retained,omitempty" yaml:"retained,omitempty"`

	RequiredForce            ForceLevel `json:"required_force" yaml:"required_force"`
	Purge                    bool       `json:"purge,omitempty" yaml:"purge,omitempty"`
	RequiresUserConfirmation bool       `json:"requires_user_confirmation" yaml:"requires_user_confirmation"`
}

// Unsatisfiable reports whether the plan cannot run without violating a constraint
func (p *DependencyPlan) Unsatisfiable() bool {
	return len(p.Blockers) > 0
}

// IsEmpty reports whether executing the plan would change nothing
func (p *DependencyPlan) IsEmpty() bool {
	return len(p.ToInstall) == 0 && len(p.ToRemove) == 0 && len(p.ToUpgrade) == 0
}

// IsRequested reports whether the caller named the package
func (p *DependencyPlan) IsRequested(name string) bool {
	return slices.Contains(p.Requested, name)
}

// Removes reports whether name is scheduled for removal
func (p *DependencyPlan) Removes(name string) bool {
	return slices.ContainsFunc(p.ToRemove, func(pkg Package) bool { return pkg.Name == name })
}

// ImplicitRemovals are removals the caller did not name
func (p *DependencyPlan) ImplicitRemovals() []Package {
	var out []Package
	for _, pkg := range p.ToRemove {
		if !p.IsRequested(pkg.Name) {
			out = append(out, pkg)
		}
	}
	return out
}

// RemovalsWithReason filters ToRemove by reason
func (p *DependencyPlan) RemovalsWithReason(reason RemovalReason) []Package {
	var out []Package
	for _, pkg := range p.ToRemove {
		if p.Reasons[pkg.Name] == reason {
			out = append(out, pkg)
		}
	}
	return out
}

// Names returns the package names of a slice in order
func Names(pkgs []Package) []string {
	names := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		names = append(names, pkg.Name)
	}
	return names
}

// Validate checks that no package appears in more than one action set
func (p *DependencyPlan) Validate() error {
	seen := make(map[string]string)
	sets := []struct {
		name string
		pkgs []Package
	}{
		{"to_install", p.ToInstall},
		{"to_remove", p.ToRemove},
		{"to_upgrade", p.ToUpgrade},
	}
	for _, set := range sets {
		for _, pkg := range set.pkgs {
			if prev, ok := seen[pkg.Name]; ok {
				return fmt.Errorf("package %s appears in both %s and %s", pkg.Name, prev, set.name)
			}
			seen[pkg.Name] = set.name
		}
	}
	return nil
}

// ImpactGroup holds package names split by classification
type ImpactGroup struct {
	Custom      []string `json:"custom,omitempty" yaml:"custom,omitempty"`
	System      []string `json:"system,omitempty" yaml:"system,omitempty"`
	Metapackage []string `json:"metapackage,omitempty" yaml:"metapackage,omitempty"`
}

// Count is the total number of packages in the group
func (g ImpactGroup) Count() int {
	return len(g.Custom) + len(g.System) + len(g.Metapackage)
}

// All returns every name in the group, metapackages first
func (g ImpactGroup) All() []string {
	out := make([]string, 0, g.Count())
	out = append(out, g.Metapackage...)
	out = append(out, g.Custom...)
	return append(out, g.System...)
}

// ImpactSummary is the data behind a confirmation prompt
type ImpactSummary struct {
	Install   ImpactGroup `json:"install" yaml:"install"`
	Remove    ImpactGroup `json:"remove" yaml:"remove"`
	Upgrade   ImpactGroup `json:"upgrade" yaml:"upgrade"`
	Conflicts []string    `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Blockers  []string    `json:"blockers,omitempty" yaml:"blockers,omitempty"`
	Retained  []string    `json:"retained,omitempty" yaml:"retained,omitempty"`
	Risk      RiskLevel   `json:"risk" yaml:"risk"`
}
