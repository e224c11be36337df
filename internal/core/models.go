package core

import (
	"slices"
	"strings"
)

// PackageType is the policy classification of a package
type PackageType string

const (
	PackageTypeSystem      PackageType = "system"
	PackageTypeCustom      PackageType = "custom"
	PackageTypeMetapackage PackageType = "metapackage"
)

// PackageStatus is the installation state reported by the backend
type PackageStatus string

const (
	StatusInstalled    PackageStatus = "installed"
	StatusNotInstalled PackageStatus = "not-installed"
	StatusBroken       PackageStatus = "broken"
	StatusPending      PackageStatus = "pending"
)

// RiskLevel rates how dangerous removing a package is
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Package is a snapshot of one package as reported by the backend.
// Values are never mutated after a query; callers re-query for fresh state.
type Package struct {
	Name          string        `json:"name" yaml:"name"`
	Version       string        `json:"version,omitempty" yaml:"version,omitempty"`
	Candidate     string        `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	IsMetapackage bool          `json:"is_metapackage" yaml:"is_metapackage"`
	IsCustom      bool          `json:"is_custom" yaml:"is_custom"`
	AutoInstalled bool          `json:"auto_installed" yaml:"auto_installed"`
	Section       string        `json:"section,omitempty" yaml:"section,omitempty"`
	Dependencies  []string      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Conflicts     []string      `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Status        PackageStatus `json:"status" yaml:"status"`
}

// IsInstalled reports whether the package occupies the system, broken or not
func (p Package) IsInstalled() bool {
	return p.Status == StatusInstalled || p.Status == StatusBroken
}

// TargetVersion is the version a plan would leave installed
func (p Package) TargetVersion() string {
	if p.Candidate != "" {
		return p.Candidate
	}
	return p.Version
}

// DependsOn reports whether name is a direct dependency
func (p Package) DependsOn(name string) bool {
	return slices.Contains(p.Dependencies, name)
}

// Clone returns a deep copy so slices are not shared between snapshots
func (p Package) Clone() Package {
	p.Dependencies = slices.Clone(p.Dependencies)
	p.Conflicts = slices.Clone(p.Conflicts)
	return p
}

// ConstraintOp is a Debian relationship operator
type ConstraintOp string

const (
	OpLess      ConstraintOp = "<<"
	OpLessEq    ConstraintOp = "<="
	OpEqual     ConstraintOp = "="
	OpGreaterEq ConstraintOp = ">="
	OpGreater   ConstraintOp = ">>"
)

// Constraint restricts the acceptable versions of a dependency
type Constraint struct {
	Op      ConstraintOp `json:"op" yaml:"op"`
	Version string       `json:"version" yaml:"version"`
}

func (c Constraint) String() string {
	return string(c.Op) + " " + c.Version
}

// Dependency is a directed edge to a required package. Alternatives hold
// the rest of an "a | b" group; any one option satisfies the edge.
type Dependency struct {
	Name          string       `json:"name" yaml:"name"`
	Constraint    *Constraint  `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Alternatives  []Dependency `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	Unsatisfiable bool         `json:"unsatisfiable,omitempty" yaml:"unsatisfiable,omitempty"`
}

// Options returns the edge itself followed by its alternatives, each
// without nested alternatives
func (d Dependency) Options() []Dependency {
	out := make([]Dependency, 0, 1+len(d.Alternatives))
	first := d
	first.Alternatives = nil
	out = append(out, first)
	for _, alt := range d.Alternatives {
		alt.Alternatives = nil
		out = append(out, alt)
	}
	return out
}

// Names lists every package name that can satisfy the edge
func (d Dependency) Names() []string {
	opts := d.Options()
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return names
}

func (d Dependency) String() string {
	parts := make([]string, 0, 1+len(d.Alternatives))
	for _, o := range d.Options() {
		if o.Constraint == nil {
			parts = append(parts, o.Name)
			continue
		}
		parts = append(parts, o.Name+" ("+o.Constraint.String()+")")
	}
	return strings.Join(parts, " | ")
}

// Conflict is an unordered pair of mutually exclusive packages. A non-nil
// Constraint limits the conflict to versions of B that satisfy it, as in
// "Breaks: b (<< 2.0)".
type Conflict struct {
	A             string      `json:"a" yaml:"a"`
	B             string      `json:"b" yaml:"b"`
	Constraint    *Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Reason        string      `json:"reason" yaml:"reason"`
	Unsatisfiable bool        `json:"unsatisfiable,omitempty" yaml:"unsatisfiable,omitempty"`
	Removal       string      `json:"removal,omitempty" yaml:"removal,omitempty"`
}

// Involves reports whether name is one side of the pair
func (c Conflict) Involves(name string) bool {
	return c.A == name || c.B == name
}

// Other returns the opposite side of the pair
func (c Conflict) Other(name string) string {
	if c.A == name {
		return c.B
	}
	return c.A
}

// Key identifies the pair independent of order
func (c Conflict) Key() string {
	if c.A < c.B {
		return c.A + "|" + c.B
	}
	return c.B + "|" + c.A
}

// ConfirmationRequest describes something the user has to approve
type ConfirmationRequest struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Items       []string `json:"items,omitempty" yaml:"items,omitempty"`
	Default     bool     `json:"default" yaml:"default"`
}

// Exit codes returned by the CLI
const (
	ExitSuccess              = 0
	ExitFailure              = 1
	ExitConfirmationRequired = 2
)
