package syspkg

import (
	"context"

	"github.com/quantmind-br/dpm/internal/core"
)

// Flags modify a single backend mutation. Downgrade allows an install to
// replace a newer installed version.
type Flags struct {
	Force     core.ForceLevel
	Purge     bool
	Downgrade bool
}

// Target is a package name with an optional exact version
type Target struct {
	Name    string
	Version string
}

func (t Target) String() string {
	if t.Version == "" {
		return t.Name
	}
	return t.Name + "=" + t.Version
}

// Simulation is what the backend would do for a request, without doing it
type Simulation struct {
	Installs []string
	Removals []string
}

// Backend is the package database dpm drives. Queries return fresh
// snapshots; unknown names fail with a core PackageNotFound error.
type Backend interface {
	// Name returns the backend name (e.g., "apt")
	Name() string

	// Query returns a snapshot of one package
	Query(ctx context.Context, name string) (core.Package, error)

	// Dependencies lists the direct dependencies of the candidate version
	Dependencies(ctx context.Context, name string) ([]core.Dependency, error)

	// ReverseDependencies lists installed packages that depend on name
	ReverseDependencies(ctx context.Context, name string) ([]core.Package, error)

	// Conflicts lists packages declared mutually exclusive with name
	Conflicts(ctx context.Context, name string) ([]core.Conflict, error)

	// AvailableVersions lists every version the backend knows for name
	AvailableVersions(ctx context.Context, name string) ([]string, error)

	// Install installs name, at version when not empty
	Install(ctx context.Context, name, version string, flags Flags) error

	// Remove removes name
	Remove(ctx context.Context, name string, flags Flags) error

	// MarkManual exempts packages from auto-removal
	MarkManual(ctx context.Context, names ...string) error

	// MarkAuto flags packages as automatically installed
	MarkAuto(ctx context.Context, names ...string) error

	// Simulate reports the effect of an operation without mutating anything
	Simulate(ctx context.Context, op core.Operation, targets []Target, flags Flags) (*Simulation, error)

	// Broken lists packages in a broken or half-configured state
	Broken(ctx context.Context) ([]core.Package, error)

	// FixBroken asks the backend to repair interrupted operations
	FixBroken(ctx context.Context) error

	// ListInstalled lists every installed package
	ListInstalled(ctx context.Context) ([]core.Package, error)
}

// LockStatus describes one package-database lock file
type LockStatus struct {
	Path string `json:"path" yaml:"path"`
	Held bool   `json:"held" yaml:"held"`
	PID  int    `json:"pid,omitempty" yaml:"pid,omitempty"`
}

// LockInspector is implemented by backends that can report lock holders
type LockInspector interface {
	Locks(ctx context.Context) ([]LockStatus, error)
}

// CacheCleaner is implemented by backends that keep a downloaded package
// cache. Aggressive cleaning drops every cached archive; otherwise only
// archives that can no longer be downloaded go.
type CacheCleaner interface {
	CleanCache(ctx context.Context, aggressive bool) error
}

// OrphanFinder is implemented by backends that track automatically
// installed packages nothing depends on any more
type OrphanFinder interface {
	Orphans(ctx context.Context) ([]string, error)
}
