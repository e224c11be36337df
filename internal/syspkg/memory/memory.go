// Package memory is a package database held in memory. It follows apt/dpkg
// semantics closely enough to drive the resolver and engine in tests and
// dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/debver"
	"github.com/quantmind-br/dpm/internal/syspkg"
)

// Entry describes one package in the snapshot
type Entry struct {
	Name      string
	Installed string
	Versions  []string
	Depends   []core.Dependency
	Conflicts []string
	// Breaks are versioned one-sided conflicts declared by this package
	Breaks   []core.Dependency
	Provides []string
	Meta     bool
	Auto     bool
	Broken   bool
	Section  string
}

// Backend implements syspkg.Backend over a set of entries
type Backend struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	calls    []string
	failures map[string]error
}

var (
	_ syspkg.Backend      = (*Backend)(nil)
	_ syspkg.CacheCleaner = (*Backend)(nil)
)

// New creates a backend holding entries
func New(entries ...Entry) *Backend {
	b := &Backend{
		entries:  make(map[string]*Entry),
		failures: make(map[string]error),
	}
	for _, e := range entries {
		b.Add(e)
	}
	return b
}

// Add inserts or replaces an entry
func (b *Backend) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.Versions = slices.Clone(e.Versions)
	e.Depends = slices.Clone(e.Depends)
	e.Conflicts = slices.Clone(e.Conflicts)
	e.Breaks = slices.Clone(e.Breaks)
	e.Provides = slices.Clone(e.Provides)
	b.entries[e.Name] = &e
}

// Dep is shorthand for an unconstrained dependency
func Dep(name string) core.Dependency {
	return core.Dependency{Name: name}
}

// DepOn is shorthand for a constrained dependency
func DepOn(name string, op core.ConstraintOp, version string) core.Dependency {
	return core.Dependency{Name: name, Constraint: &core.Constraint{Op: op, Version: version}}
}

// FailOn makes the named mutation return err. op is one of install,
// remove, purge, mark-manual, mark-auto or fix-broken.
func (b *Backend) FailOn(op, name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op+" "+name] = err
}

// Calls returns the mutations performed so far
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// InstalledVersion returns the installed version of name
func (b *Backend) InstalledVersion(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok || e.Installed == "" {
		return "", false
	}
	return e.Installed, true
}

// IsAuto reports whether name is marked automatically installed
func (b *Backend) IsAuto(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	return ok && e.Auto
}

// Name implements syspkg.Backend
func (b *Backend) Name() string {
	return "memory"
}

func (b *Backend) record(format string, args ...interface{}) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *Backend) failure(op, name string) error {
	return b.failures[op+" "+name]
}

func forceSuffix(f syspkg.Flags) string {
	suffix := ""
	if f.Force != "" && f.Force != core.ForceNone {
		suffix = " --force-" + string(f.Force)
	}
	if f.Downgrade {
		suffix += " --allow-downgrades"
	}
	return suffix
}

func (b *Backend) sortedNames() []string {
	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Backend) installed(name string) (*Entry, bool) {
	e, ok := b.entries[name]
	if !ok || e.Installed == "" {
		return nil, false
	}
	return e, true
}

// lookup finds name itself or, for a virtual name, a package providing
// it. Installed providers win.
func (b *Backend) lookup(name string) (*Entry, bool) {
	if e, ok := b.entries[name]; ok {
		return e, true
	}
	var found *Entry
	for _, n := range b.sortedNames() {
		e := b.entries[n]
		if !slices.Contains(e.Provides, name) {
			continue
		}
		if e.Installed != "" {
			return e, true
		}
		if found == nil {
			found = e
		}
	}
	return found, found != nil
}

// satisfied reports whether an installed package meets one option of d.
// Versioned options need a real package; providers only satisfy plain ones.
func (b *Backend) satisfied(d core.Dependency, without string) bool {
	for _, o := range d.Options() {
		if o.Name == without {
			continue
		}
		if dep, ok := b.installed(o.Name); ok && debver.SatisfiesConstraint(dep.Installed, o.Constraint) {
			return true
		}
		if _, real := b.entries[o.Name]; !real && o.Constraint == nil {
			if p, ok := b.lookup(o.Name); ok && p.Installed != "" && p.Name != without {
				return true
			}
		}
	}
	return false
}

// needs reports whether removing name leaves d without any option
func (b *Backend) needs(d core.Dependency, name string) bool {
	mentions := slices.Contains(d.Names(), name)
	if !mentions {
		for _, n := range d.Names() {
			if p, ok := b.lookup(n); ok && p.Name == name {
				mentions = true
				break
			}
		}
	}
	return mentions && !b.satisfied(d, name)
}

func (b *Backend) unmet(e *Entry) bool {
	for _, d := range e.Depends {
		if !b.satisfied(d, "") {
			return true
		}
	}
	return false
}

func (b *Backend) conflictsOf(name string) []string {
	seen := make(map[string]bool)
	if e, ok := b.entries[name]; ok {
		for _, c := range e.Conflicts {
			seen[c] = true
		}
	}
	for _, other := range b.entries {
		if slices.Contains(other.Conflicts, name) {
			seen[other.Name] = true
		}
	}
	delete(seen, name)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// breakersOf lists installed packages that declare a Breaks matching name
// at version
func (b *Backend) breakersOf(name, version string) []string {
	var out []string
	for _, n := range b.sortedNames() {
		e := b.entries[n]
		if e.Installed == "" {
			continue
		}
		for _, d := range e.Breaks {
			if d.Name == name && debver.SatisfiesConstraint(version, d.Constraint) {
				out = append(out, n)
			}
		}
	}
	return out
}

func targetVersion(targets []syspkg.Target, name string, e *Entry) string {
	for _, t := range targets {
		if t.Name == name && t.Version != "" {
			return t.Version
		}
	}
	return debver.Latest(e.Versions)
}

func (b *Backend) snapshot(e *Entry) core.Package {
	status := core.StatusNotInstalled
	if e.Installed != "" {
		status = core.StatusInstalled
		if e.Broken || b.unmet(e) {
			status = core.StatusBroken
		}
	}

	candidate := debver.Latest(e.Versions)
	if candidate == "" {
		candidate = e.Installed
	}

	deps := make([]string, 0, len(e.Depends))
	for _, d := range e.Depends {
		deps = append(deps, d.Name)
	}

	return core.Package{
		Name:          e.Name,
		Version:       e.Installed,
		Candidate:     candidate,
		IsMetapackage: e.Meta,
		AutoInstalled: e.Auto && e.Installed != "",
		Section:       e.Section,
		Dependencies:  deps,
		Conflicts:     b.conflictsOf(e.Name),
		Status:        status,
	}
}

// Query implements syspkg.Backend
func (b *Backend) Query(_ context.Context, name string) (core.Package, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.lookup(name)
	if !ok {
		return core.Package{}, core.NotFound(name)
	}
	return b.snapshot(e), nil
}

// Dependencies implements syspkg.Backend
func (b *Backend) Dependencies(_ context.Context, name string) ([]core.Dependency, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok {
		return nil, core.NotFound(name)
	}
	return slices.Clone(e.Depends), nil
}

// ReverseDependencies implements syspkg.Backend
func (b *Backend) ReverseDependencies(_ context.Context, name string) ([]core.Package, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[name]; !ok {
		return nil, core.NotFound(name)
	}

	var out []core.Package
	for _, n := range b.sortedNames() {
		e := b.entries[n]
		if e.Installed == "" || n == name {
			continue
		}
		for _, d := range e.Depends {
			if slices.Contains(d.Names(), name) {
				out = append(out, b.snapshot(e))
				break
			}
		}
	}
	return out, nil
}

// Conflicts implements syspkg.Backend
func (b *Backend) Conflicts(_ context.Context, name string) ([]core.Conflict, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[name]; !ok {
		return nil, core.NotFound(name)
	}

	var out []core.Conflict
	for _, other := range b.conflictsOf(name) {
		out = append(out, core.Conflict{
			A:      name,
			B:      other,
			Reason: fmt.Sprintf("%s and %s are declared mutually exclusive", name, other),
		})
	}
	for _, n := range b.sortedNames() {
		for _, d := range b.entries[n].Breaks {
			if n != name && d.Name != name {
				continue
			}
			out = append(out, core.Conflict{
				A:          n,
				B:          d.Name,
				Constraint: d.Constraint,
				Reason:     fmt.Sprintf("%s breaks %s", n, d),
			})
		}
	}
	return out, nil
}

// AvailableVersions implements syspkg.Backend
func (b *Backend) AvailableVersions(_ context.Context, name string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[name]
	if !ok {
		return nil, core.NotFound(name)
	}
	versions := slices.Clone(e.Versions)
	if e.Installed != "" && !slices.Contains(versions, e.Installed) {
		versions = append(versions, e.Installed)
	}
	sort.Slice(versions, func(i, j int) bool { return debver.Compare(versions[i], versions[j]) < 0 })
	return versions, nil
}

// Install implements syspkg.Backend
func (b *Backend) Install(_ context.Context, name, version string, flags syspkg.Flags) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("install %s%s", syspkg.Target{Name: name, Version: version}, forceSuffix(flags))
	if err := b.failure("install", name); err != nil {
		return err
	}

	e, ok := b.entries[name]
	if !ok {
		return core.NotFound(name)
	}

	if version == "" {
		version = debver.Latest(e.Versions)
	}
	if version == "" || (!slices.Contains(e.Versions, version) && version != e.Installed) {
		return fmt.Errorf("version %q of %s is not available", version, name)
	}

	for _, other := range b.conflictsOf(name) {
		if _, ok := b.installed(other); ok {
			return fmt.Errorf("%s conflicts with installed package %s", name, other)
		}
	}

	if flags.Force == "" || flags.Force == core.ForceNone {
		for _, d := range e.Depends {
			if !b.satisfied(d, "") {
				return fmt.Errorf("%s has an unmet dependency on %s", name, d)
			}
		}
	}

	e.Installed = version
	e.Broken = false
	e.Auto = false
	return nil
}

// Remove implements syspkg.Backend. Removing a package that is not
// installed succeeds, as apt-get does.
func (b *Backend) Remove(_ context.Context, name string, flags syspkg.Flags) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	op := "remove"
	if flags.Purge {
		op = "purge"
	}
	b.record("%s %s%s", op, name, forceSuffix(flags))
	if err := b.failure(op, name); err != nil {
		return err
	}

	e, ok := b.entries[name]
	if !ok {
		return core.NotFound(name)
	}
	if e.Installed == "" {
		return nil
	}

	if flags.Force == "" || flags.Force == core.ForceNone {
		for _, n := range b.sortedNames() {
			other := b.entries[n]
			if other.Installed == "" || n == name {
				continue
			}
			for _, d := range other.Depends {
				if b.needs(d, name) {
					return fmt.Errorf("removing %s would break %s", name, n)
				}
			}
		}
	}

	e.Installed = ""
	e.Auto = false
	e.Broken = false
	return nil
}

func (b *Backend) mark(op string, auto bool, names []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("%s %s", op, strings.Join(names, " "))
	for _, name := range names {
		if err := b.failure(op, name); err != nil {
			return err
		}
	}
	for _, name := range names {
		if e, ok := b.entries[name]; ok {
			e.Auto = auto
		}
	}
	return nil
}

// MarkManual implements syspkg.Backend
func (b *Backend) MarkManual(_ context.Context, names ...string) error {
	return b.mark("mark-manual", false, names)
}

// MarkAuto implements syspkg.Backend
func (b *Backend) MarkAuto(_ context.Context, names ...string) error {
	return b.mark("mark-auto", true, names)
}

// Simulate implements syspkg.Backend
func (b *Backend) Simulate(_ context.Context, op core.Operation, targets []syspkg.Target, flags syspkg.Flags) (*syspkg.Simulation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range targets {
		if _, ok := b.entries[t.Name]; !ok {
			return nil, core.NotFound(t.Name)
		}
	}

	sim := &syspkg.Simulation{}
	switch op {
	case core.OperationInstall:
		installs := make(map[string]bool)
		queue := make([]string, 0, len(targets))
		for _, t := range targets {
			e := b.entries[t.Name]
			if e.Installed == "" || (t.Version != "" && t.Version != e.Installed) {
				installs[t.Name] = true
			}
			queue = append(queue, t.Name)
		}
		visited := make(map[string]bool)
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			if visited[name] {
				continue
			}
			visited[name] = true
			e, ok := b.entries[name]
			if !ok {
				return nil, fmt.Errorf("unmet dependency %s", name)
			}
			for _, d := range e.Depends {
				if b.satisfied(d, "") {
					continue
				}
				picked := false
				for _, o := range d.Names() {
					if dep, ok := b.lookup(o); ok {
						installs[dep.Name] = true
						queue = append(queue, dep.Name)
						picked = true
						break
					}
				}
				if !picked {
					queue = append(queue, d.Name)
				}
			}
		}
		removals := make(map[string]bool)
		for name := range installs {
			for _, other := range b.conflictsOf(name) {
				if _, ok := b.installed(other); ok {
					removals[other] = true
				}
			}
			for _, other := range b.breakersOf(name, targetVersion(targets, name, b.entries[name])) {
				removals[other] = true
			}
		}
		sim.Installs = sortedKeys(installs)
		sim.Removals = sortedKeys(removals)

	case core.OperationRemove:
		removals := make(map[string]bool)
		queue := make([]string, 0, len(targets))
		for _, t := range targets {
			if _, ok := b.installed(t.Name); ok {
				removals[t.Name] = true
				queue = append(queue, t.Name)
			}
		}
		if flags.Force == "" || flags.Force == core.ForceNone {
			for len(queue) > 0 {
				name := queue[0]
				queue = queue[1:]
				for _, n := range b.sortedNames() {
					other := b.entries[n]
					if other.Installed == "" || removals[n] {
						continue
					}
					for _, d := range other.Depends {
						if b.needs(d, name) {
							removals[n] = true
							queue = append(queue, n)
							break
						}
					}
				}
			}
		}
		sim.Removals = sortedKeys(removals)

	default:
		return nil, fmt.Errorf("cannot simulate %s", op)
	}
	return sim, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Broken implements syspkg.Backend
func (b *Backend) Broken(_ context.Context) ([]core.Package, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []core.Package
	for _, name := range b.sortedNames() {
		e := b.entries[name]
		if e.Installed == "" {
			continue
		}
		if snap := b.snapshot(e); snap.Status == core.StatusBroken {
			out = append(out, snap)
		}
	}
	return out, nil
}

// FixBroken implements syspkg.Backend. It clears broken flags and pulls
// in missing dependencies at their candidate version.
func (b *Backend) FixBroken(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record("fix-broken")
	if err := b.failure("fix-broken", ""); err != nil {
		return err
	}

	for _, name := range b.sortedNames() {
		e := b.entries[name]
		if e.Installed == "" {
			continue
		}
		e.Broken = false
		for _, d := range e.Depends {
			if b.satisfied(d, "") {
				continue
			}
			dep, ok := b.lookup(d.Name)
			if !ok || dep.Installed != "" {
				continue
			}
			if v := debver.Latest(dep.Versions); v != "" {
				dep.Installed = v
				dep.Auto = true
			}
		}
	}
	return nil
}

// CleanCache implements syspkg.CacheCleaner. There is no cache to clean,
// so only the call is recorded.
func (b *Backend) CleanCache(_ context.Context, aggressive bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	op := "autoclean"
	if aggressive {
		op = "clean"
	}
	b.record("%s", op)
	return b.failure(op, "")
}

// ListInstalled implements syspkg.Backend
func (b *Backend) ListInstalled(_ context.Context) ([]core.Package, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []core.Package
	for _, name := range b.sortedNames() {
		if e := b.entries[name]; e.Installed != "" {
			out = append(out, b.snapshot(e))
		}
	}
	return out, nil
}
