package apt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DefaultMetapackageSizeKB is the Installed-Size at or below which a
// package that is not installed yet is treated as a metapackage
const DefaultMetapackageSizeKB = 64

const statusFormat = "-f=${db:Status-Abbrev}\t${Package}\t${Version}\n"

// Backend implements syspkg.Backend on top of apt-get, apt-cache, apt-mark,
// dpkg and dpkg-query
type Backend struct {
	runner     helpers.CommandRunner
	fs         afero.Fs
	log        *zerolog.Logger
	metaSizeKB int
}

var (
	_ syspkg.Backend       = (*Backend)(nil)
	_ syspkg.LockInspector = (*Backend)(nil)
	_ syspkg.CacheCleaner  = (*Backend)(nil)
	_ syspkg.OrphanFinder  = (*Backend)(nil)
)

// New creates an apt backend. fs is used to inspect files owned by
// installed packages.
func New(runner helpers.CommandRunner, fs afero.Fs, log *zerolog.Logger) *Backend {
	return &Backend{
		runner:     runner,
		fs:         fs,
		log:        log,
		metaSizeKB: DefaultMetapackageSizeKB,
	}
}

// Name implements syspkg.Backend
func (b *Backend) Name() string {
	return "apt"
}

func (b *Backend) aptGet(ctx context.Context, args ...string) (string, error) {
	return b.runner.RunPrivileged(ctx, "env", append([]string{"DEBIAN_FRONTEND=noninteractive", "apt-get"}, args...)...)
}

func (b *Backend) show(ctx context.Context, name string) (map[string]string, error) {
	out, err := b.runner.RunCommand(ctx, "apt-cache", "show", "--no-all-versions", name)
	if err != nil {
		return nil, core.WrapErrorf(err, core.CodeBackendFailure, "apt-cache show %s", name)
	}
	return parseControl(out), nil
}

func relations(fields map[string]string, keys ...string) []core.Dependency {
	var deps []core.Dependency
	for _, key := range keys {
		deps = append(deps, parseRelations(fields[key])...)
	}
	return deps
}

// Query implements syspkg.Backend
func (b *Backend) Query(ctx context.Context, name string) (core.Package, error) {
	out, err := b.runner.RunCommand(ctx, "apt-cache", "policy", name)
	if err != nil {
		return core.Package{}, core.WrapErrorf(err, core.CodeBackendFailure, "apt-cache policy %s", name)
	}

	installed, candidate := parsePolicy(out)
	if installed == "" && candidate == "" {
		return b.queryProvider(ctx, name)
	}

	fields, err := b.show(ctx, name)
	if err != nil {
		return core.Package{}, err
	}

	deps := relations(fields, "Pre-Depends", "Depends")
	pkg := core.Package{
		Name:         name,
		Version:      installed,
		Candidate:    candidate,
		Section:      fields["Section"],
		Dependencies: dependencyNames(deps),
		Conflicts:    dependencyNames(relations(fields, "Conflicts", "Breaks")),
		Status:       core.StatusNotInstalled,
	}

	if installed != "" {
		pkg.Status = core.StatusInstalled
		if status, err := b.runner.RunCommand(ctx, "dpkg-query", "-W", statusFormat, name); err == nil {
			for _, row := range parseStatus(status) {
				if row.name == name && row.broken() {
					pkg.Status = core.StatusBroken
				}
			}
		}
		pkg.AutoInstalled = b.isAuto(ctx, name)
	}

	pkg.IsMetapackage = b.isMetapackage(ctx, name, installed != "", fields, len(deps))
	return pkg, nil
}

// queryProvider resolves a virtual package to a real one that provides
// it: an installed provider when there is one, else the first installable
// provider apt lists
func (b *Backend) queryProvider(ctx context.Context, virtual string) (core.Package, error) {
	out, err := b.runner.RunCommand(ctx, "apt-cache", "showpkg", virtual)
	if err != nil {
		return core.Package{}, core.NotFound(virtual)
	}

	var chosen string
	for _, provider := range parseReverseProvides(out) {
		if provider == virtual {
			continue
		}
		policy, err := b.runner.RunCommand(ctx, "apt-cache", "policy", provider)
		if err != nil {
			continue
		}
		installed, candidate := parsePolicy(policy)
		if installed != "" {
			chosen = provider
			break
		}
		if candidate != "" && chosen == "" {
			chosen = provider
		}
	}
	if chosen == "" {
		return core.Package{}, core.NotFound(virtual)
	}

	b.log.Debug().Str("package", virtual).Str("provider", chosen).Msg("virtual package resolved")
	return b.Query(ctx, chosen)
}

func dependencyNames(deps []core.Dependency) []string {
	names := make([]string, 0, len(deps))
	for _, d := range deps {
		names = append(names, d.Name)
	}
	return names
}

func (b *Backend) isAuto(ctx context.Context, name string) bool {
	out, err := b.runner.RunCommand(ctx, "apt-mark", "showauto", name)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == name
}

// isMetapackage reports packages with dependencies and no payload. For
// installed packages every owned path outside /usr/share/doc has to be a
// directory; otherwise the section or a tiny Installed-Size decides.
func (b *Backend) isMetapackage(ctx context.Context, name string, installed bool, fields map[string]string, depCount int) bool {
	if depCount == 0 {
		return false
	}
	if strings.HasSuffix(fields["Section"], "metapackages") {
		return true
	}

	if !installed {
		size := parseSizeKB(fields["Installed-Size"])
		return size >= 0 && size <= b.metaSizeKB
	}

	out, err := b.runner.RunCommand(ctx, "dpkg-query", "-L", name)
	if err != nil {
		b.log.Debug().Err(err).Str("package", name).Msg("cannot list package files")
		return false
	}
	for _, path := range strings.Split(out, "\n") {
		path = strings.TrimSpace(path)
		if path == "" || path == "/." || strings.HasPrefix(path, "/usr/share/doc") {
			continue
		}
		info, err := b.fs.Stat(path)
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// Dependencies implements syspkg.Backend
func (b *Backend) Dependencies(ctx context.Context, name string) ([]core.Dependency, error) {
	fields, err := b.show(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, core.NotFound(name)
	}
	return relations(fields, "Pre-Depends", "Depends"), nil
}

// ReverseDependencies implements syspkg.Backend
func (b *Backend) ReverseDependencies(ctx context.Context, name string) ([]core.Package, error) {
	out, err := b.runner.RunCommand(ctx, "apt-cache", "rdepends", "--installed",
		"--no-recommends", "--no-suggests", "--no-conflicts", "--no-breaks",
		"--no-replaces", "--no-enhances", name)
	if err != nil {
		return nil, core.WrapErrorf(err, core.CodeBackendFailure, "apt-cache rdepends %s", name)
	}

	var pkgs []core.Package
	for _, rdep := range parseRdepends(out, name) {
		pkg, err := b.Query(ctx, rdep)
		if core.IsCode(err, core.CodePackageNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if pkg.IsInstalled() {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

// Conflicts implements syspkg.Backend. Only relations declared by name
// itself are visible through apt-cache; the reverse direction surfaces in
// simulation. Versioned relations keep their constraint on B.
func (b *Backend) Conflicts(ctx context.Context, name string) ([]core.Conflict, error) {
	fields, err := b.show(ctx, name)
	if err != nil {
		return nil, err
	}

	var conflicts []core.Conflict
	for _, key := range []string{"Conflicts", "Breaks"} {
		for _, rel := range parseRelations(fields[key]) {
			if rel.Name == name {
				continue
			}
			conflicts = append(conflicts, core.Conflict{
				A:          name,
				B:          rel.Name,
				Constraint: rel.Constraint,
				Reason:     fmt.Sprintf("%s %s %s", name, strings.ToLower(key), rel),
			})
		}
	}
	return conflicts, nil
}

// AvailableVersions implements syspkg.Backend
func (b *Backend) AvailableVersions(ctx context.Context, name string) ([]string, error) {
	out, err := b.runner.RunCommand(ctx, "apt-cache", "madison", name)
	if err != nil {
		return nil, core.WrapErrorf(err, core.CodeBackendFailure, "apt-cache madison %s", name)
	}
	versions := parseMadison(out)
	if len(versions) > 0 {
		return versions, nil
	}

	// packages installed from a local .deb have no repository entry
	pkg, err := b.Query(ctx, name)
	if err != nil {
		return nil, err
	}
	if pkg.Version != "" {
		return []string{pkg.Version}, nil
	}
	return nil, nil
}

func installForceArgs(level core.ForceLevel) []string {
	switch level {
	case core.ForceDepends:
		return []string{"-o", "Dpkg::Options::=--force-depends"}
	case core.ForceAll:
		return []string{"--allow-change-held-packages", "-o", "Dpkg::Options::=--force-depends"}
	default:
		return nil
	}
}

// Install implements syspkg.Backend
func (b *Backend) Install(ctx context.Context, name, version string, flags syspkg.Flags) error {
	args := []string{"install", "-y"}
	args = append(args, installForceArgs(flags.Force)...)
	if flags.Downgrade {
		args = append(args, "--allow-downgrades")
	}
	args = append(args, syspkg.Target{Name: name, Version: version}.String())

	if _, err := b.aptGet(ctx, args...); err != nil {
		return core.WrapErrorf(err, core.CodeBackendFailure, "apt-get install %s", name)
	}
	return nil
}

// Remove implements syspkg.Backend. Without force apt-get resolves the
// removal; forced removals go straight to dpkg so dependents stay put.
func (b *Backend) Remove(ctx context.Context, name string, flags syspkg.Flags) error {
	var err error
	switch flags.Force {
	case core.ForceDepends, core.ForceAll:
		action := "--remove"
		if flags.Purge {
			action = "--purge"
		}
		_, err = b.runner.RunPrivileged(ctx, "dpkg", action, "--force-"+string(flags.Force), name)
	default:
		action := "remove"
		if flags.Purge {
			action = "purge"
		}
		_, err = b.aptGet(ctx, action, "-y", name)
	}
	if err != nil {
		return core.WrapErrorf(err, core.CodeBackendFailure, "remove %s", name)
	}
	return nil
}

// MarkManual implements syspkg.Backend
func (b *Backend) MarkManual(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := b.runner.RunPrivileged(ctx, "apt-mark", append([]string{"manual"}, names...)...); err != nil {
		return core.WrapError(err, core.CodeBackendFailure, "apt-mark manual")
	}
	return nil
}

// MarkAuto implements syspkg.Backend
func (b *Backend) MarkAuto(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := b.runner.RunPrivileged(ctx, "apt-mark", append([]string{"auto"}, names...)...); err != nil {
		return core.WrapError(err, core.CodeBackendFailure, "apt-mark auto")
	}
	return nil
}

// Simulate implements syspkg.Backend
func (b *Backend) Simulate(ctx context.Context, op core.Operation, targets []syspkg.Target, flags syspkg.Flags) (*syspkg.Simulation, error) {
	if len(targets) == 0 {
		return &syspkg.Simulation{}, nil
	}

	names := make([]string, 0, len(targets))
	specs := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
		specs = append(specs, t.String())
	}

	switch op {
	case core.OperationInstall:
		args := append([]string{"-s", "install"}, installForceArgs(flags.Force)...)
		out, err := b.runner.RunCommand(ctx, "apt-get", append(args, specs...)...)
		if err != nil {
			return nil, core.WrapError(err, core.CodeBackendFailure, "apt-get -s install")
		}
		installs, removals := parseSimulation(out)
		return &syspkg.Simulation{Installs: installs, Removals: removals}, nil

	case core.OperationRemove:
		if flags.Force == core.ForceDepends || flags.Force == core.ForceAll {
			action := "--remove"
			if flags.Purge {
				action = "--purge"
			}
			args := append([]string{"--dry-run", action, "--force-" + string(flags.Force)}, names...)
			if _, err := b.runner.RunPrivileged(ctx, "dpkg", args...); err != nil {
				return nil, core.WrapError(err, core.CodeBackendFailure, "dpkg --dry-run")
			}
			return &syspkg.Simulation{Removals: names}, nil
		}

		action := "remove"
		if flags.Purge {
			action = "purge"
		}
		out, err := b.runner.RunCommand(ctx, "apt-get", append([]string{"-s", action}, names...)...)
		if err != nil {
			return nil, core.WrapError(err, core.CodeBackendFailure, "apt-get -s "+action)
		}
		installs, removals := parseSimulation(out)
		return &syspkg.Simulation{Installs: installs, Removals: removals}, nil

	default:
		return nil, fmt.Errorf("cannot simulate %s", op)
	}
}

func (b *Backend) statusRows(ctx context.Context) ([]statusLine, error) {
	out, err := b.runner.RunCommand(ctx, "dpkg-query", "-W", statusFormat)
	if err != nil {
		return nil, core.WrapError(err, core.CodeBackendFailure, "dpkg-query -W")
	}
	return parseStatus(out), nil
}

// Broken implements syspkg.Backend
func (b *Backend) Broken(ctx context.Context) ([]core.Package, error) {
	rows, err := b.statusRows(ctx)
	if err != nil {
		return nil, err
	}

	var pkgs []core.Package
	for _, row := range rows {
		if row.broken() {
			pkgs = append(pkgs, core.Package{Name: row.name, Version: row.version, Status: core.StatusBroken})
		}
	}
	return pkgs, nil
}

// FixBroken implements syspkg.Backend
func (b *Backend) FixBroken(ctx context.Context) error {
	if _, err := b.runner.RunPrivileged(ctx, "dpkg", "--configure", "-a"); err != nil {
		return core.WrapError(err, core.CodeBackendFailure, "dpkg --configure -a")
	}
	if _, err := b.aptGet(ctx, "install", "-f", "-y"); err != nil {
		return core.WrapError(err, core.CodeBackendFailure, "apt-get install -f")
	}
	return nil
}

// CleanCache implements syspkg.CacheCleaner with apt-get clean or autoclean
func (b *Backend) CleanCache(ctx context.Context, aggressive bool) error {
	action := "autoclean"
	if aggressive {
		action = "clean"
	}
	if _, err := b.aptGet(ctx, action); err != nil {
		return core.WrapError(err, core.CodeBackendFailure, "apt-get "+action)
	}
	return nil
}

// Orphans implements syspkg.OrphanFinder with an autoremove dry run
func (b *Backend) Orphans(ctx context.Context) ([]string, error) {
	out, err := b.runner.RunCommand(ctx, "apt-get", "-s", "autoremove")
	if err != nil {
		return nil, core.WrapError(err, core.CodeBackendFailure, "apt-get -s autoremove")
	}
	_, removals := parseSimulation(out)
	return removals, nil
}

// ListInstalled implements syspkg.Backend
func (b *Backend) ListInstalled(ctx context.Context) ([]core.Package, error) {
	rows, err := b.statusRows(ctx)
	if err != nil {
		return nil, err
	}

	auto := make(map[string]bool)
	if out, err := b.runner.RunCommand(ctx, "apt-mark", "showauto"); err == nil {
		for _, line := range strings.Split(out, "\n") {
			if name := strings.TrimSpace(line); name != "" {
				auto[name] = true
			}
		}
	} else {
		b.log.Debug().Err(err).Msg("apt-mark showauto failed")
	}

	var pkgs []core.Package
	for _, row := range rows {
		if !row.installed() {
			continue
		}
		status := core.StatusInstalled
		if row.broken() {
			status = core.StatusBroken
		}
		pkgs = append(pkgs, core.Package{
			Name:          row.name,
			Version:       row.version,
			AutoInstalled: auto[row.name],
			Status:        status,
		})
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}
