// Package resolver turns an install or remove request into a
// DependencyPlan. Constraint solving stays with the backend; this layer
// adds version policy, protection and removal preference on top.
package resolver

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/debver"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/rs/zerolog"
)

// Backend is the read side of the package database the resolver needs
type Backend interface {
	Query(ctx context.Context, name string) (core.Package, error)
	Dependencies(ctx context.Context, name string) ([]core.Dependency, error)
	ReverseDependencies(ctx context.Context, name string) ([]core.Package, error)
	Conflicts(ctx context.Context, name string) ([]core.Conflict, error)
	AvailableVersions(ctx context.Context, name string) ([]string, error)
	ListInstalled(ctx context.Context) ([]core.Package, error)
}

// Simulator is implemented by backends that can dry-run an install. The
// resolver uses it to catch removals the declared relations miss.
type Simulator interface {
	Simulate(ctx context.Context, op core.Operation, targets []syspkg.Target, flags syspkg.Flags) (*syspkg.Simulation, error)
}

// Policy answers the classification questions the resolver asks
type Policy interface {
	IsCustom(name string) bool
	IsProtected(name string) bool
	IsRemovable(name string) bool
}

// Options tune the resolver. MaxDepth 0 means unbounded.
type Options struct {
	MaxDepth int
	TieBreak []string
}

// Request is one resolution call
type Request struct {
	Name      string
	Operation core.Operation
	Version   string
	Mode      core.ModeSnapshot
	Purge     bool

	// Exempt names stay installed even when they would lose a dependency
	Exempt []string
	// NoNewRemovals forbids removing anything but the named package
	NoNewRemovals bool
}

// Resolver computes dependency plans
type Resolver struct {
	backend Backend
	policy  Policy
	opts    Options
	log     *zerolog.Logger
}

// New creates a resolver
func New(backend Backend, policy Policy, opts Options, log *zerolog.Logger) *Resolver {
	if opts.TieBreak == nil {
		opts.TieBreak = DefaultTieBreak
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Resolver{backend: backend, policy: policy, opts: opts, log: log}
}

// Resolve builds the plan for req. An unsatisfiable plan is returned
// together with an UnsatisfiableDependency error so callers can still show
// the blockers. Cleanup requests take no package name.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*core.DependencyPlan, error) {
	s := newSession(r, req)

	var err error
	switch req.Operation {
	case core.OperationInstall, core.OperationRemove:
		root, qerr := s.query(ctx, req.Name)
		if qerr != nil {
			return nil, qerr
		}
		if req.Operation == core.OperationInstall {
			err = s.resolveInstall(ctx, root)
		} else {
			err = s.resolveRemove(ctx, root)
		}
	case core.OperationCleanup:
		err = s.resolveCleanup(ctx)
	default:
		return nil, core.NewErrorf(core.CodeInvalidInput, "cannot resolve operation %q", req.Operation)
	}
	if err != nil {
		return nil, err
	}

	plan, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("package", req.Name).
		Str("operation", string(req.Operation)).
		Int("install", len(plan.ToInstall)).
		Int("remove", len(plan.ToRemove)).
		Int("upgrade", len(plan.ToUpgrade)).
		Int("blockers", len(plan.Blockers)).
		Msg("plan resolved")

	if plan.Unsatisfiable() {
		target := req.Name
		if target == "" {
			target = "system"
		}
		return plan, core.NewErrorf(core.CodeUnsatisfiableDependency, "cannot %s %s: %s",
			req.Operation, target, strings.Join(plan.Blockers, "; ")).
			WithDetail("blockers", plan.Blockers)
	}
	return plan, nil
}

// session holds the state of a single Resolve call
type session struct {
	r   *Resolver
	req Request

	pkgs  map[string]core.Package
	rdeps map[string][]core.Package

	install   map[string]core.Package
	upgrade   map[string]core.Package
	remove    map[string]core.Package
	reasons   map[string]core.RemovalReason
	conflicts map[string]core.Conflict
	blockers  []string
	retained  map[string]bool

	force             core.ForceLevel
	protectedAdjacent bool
}

func newSession(r *Resolver, req Request) *session {
	return &session{
		r:         r,
		req:       req,
		pkgs:      make(map[string]core.Package),
		rdeps:     make(map[string][]core.Package),
		install:   make(map[string]core.Package),
		upgrade:   make(map[string]core.Package),
		remove:    make(map[string]core.Package),
		reasons:   make(map[string]core.RemovalReason),
		conflicts: make(map[string]core.Conflict),
		retained:  make(map[string]bool),
		force:     core.ForceNone,
	}
}

func (s *session) query(ctx context.Context, name string) (core.Package, error) {
	if pkg, ok := s.pkgs[name]; ok {
		return pkg, nil
	}
	pkg, err := s.r.backend.Query(ctx, name)
	if err != nil {
		return core.Package{}, err
	}
	pkg = pkg.Clone()
	pkg.IsCustom = s.r.policy.IsCustom(pkg.Name)
	s.pkgs[name] = pkg
	return pkg, nil
}

func (s *session) reverseDeps(ctx context.Context, name string) ([]core.Package, error) {
	if rd, ok := s.rdeps[name]; ok {
		return rd, nil
	}
	rd, err := s.r.backend.ReverseDependencies(ctx, name)
	if err != nil {
		return nil, err
	}
	var installed []core.Package
	for _, pkg := range rd {
		if pkg.IsInstalled() {
			pkg = pkg.Clone()
			pkg.IsCustom = s.r.policy.IsCustom(pkg.Name)
			installed = append(installed, pkg)
		}
	}
	sort.Slice(installed, func(i, j int) bool { return installed[i].Name < installed[j].Name })
	s.rdeps[name] = installed
	return installed, nil
}

func (s *session) protected(name string) bool {
	return s.r.policy.IsProtected(name) || s.req.Mode.IsProtected(name)
}

func (s *session) exempt(name string) bool {
	return slices.Contains(s.req.Exempt, name)
}

func (s *session) inPlan(name string) bool {
	_, inst := s.install[name]
	_, up := s.upgrade[name]
	return inst || up
}

func (s *session) block(format string, args ...interface{}) {
	s.blockers = append(s.blockers, fmt.Sprintf(format, args...))
}

func (s *session) addConflict(c core.Conflict) {
	key := c.Key()
	if prev, ok := s.conflicts[key]; ok {
		c.Unsatisfiable = c.Unsatisfiable || prev.Unsatisfiable
		if c.Removal == "" {
			c.Removal = prev.Removal
		}
	}
	s.conflicts[key] = c
}

func (s *session) unsatisfiable(parent, dep, reason string) {
	s.addConflict(core.Conflict{A: parent, B: dep, Reason: reason, Unsatisfiable: true})
	s.block("%s", reason)
}

func (s *session) withinDepth(depth int) bool {
	return s.r.opts.MaxDepth <= 0 || depth < s.r.opts.MaxDepth
}

// scheduleRemoval adds pkg to ToRemove. Protected names never get here.
func (s *session) scheduleRemoval(pkg core.Package, reason core.RemovalReason) {
	if _, ok := s.remove[pkg.Name]; ok {
		return
	}
	s.remove[pkg.Name] = pkg
	s.reasons[pkg.Name] = reason
}

type queued struct {
	name       string
	parent     string
	constraint *core.Constraint
	version    string
	depth      int
	// label is the full relation, alternatives included, for messages
	label string
}

func (s *session) resolveInstall(ctx context.Context, root core.Package) error {
	chosen := make(map[string]string)
	queue := []queued{{name: root.Name, version: s.req.Version}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if version, seen := chosen[item.name]; seen {
			if version != "" && item.constraint != nil && !debver.SatisfiesConstraint(version, item.constraint) {
				s.unsatisfiable(item.parent, item.name, fmt.Sprintf("%s needs %s (%s) but %s is selected",
					item.parent, item.name, item.constraint, version))
			}
			continue
		}

		pkg, err := s.query(ctx, item.name)
		if core.IsCode(err, core.CodePackageNotFound) {
			chosen[item.name] = ""
			label := item.label
			if label == "" {
				label = item.name
			}
			s.unsatisfiable(item.parent, item.name, fmt.Sprintf("%s depends on %s, which is unknown", item.parent, label))
			continue
		}
		if err != nil {
			return err
		}

		version, reason := s.selectVersion(ctx, pkg, item)
		chosen[item.name] = version
		if version == "" {
			s.unsatisfiable(item.parent, item.name, reason)
			continue
		}

		changed := false
		switch {
		case !pkg.IsInstalled():
			target := pkg.Clone()
			target.Candidate = version
			target.Status = core.StatusPending
			s.install[pkg.Name] = target
			changed = true
		case debver.Compare(pkg.Version, version) != 0:
			target := pkg.Clone()
			target.Candidate = version
			s.upgrade[pkg.Name] = target
			if s.protected(pkg.Name) {
				s.protectedAdjacent = true
			}
			changed = true
		}

		// unchanged installed dependencies keep their own, already met, deps
		if !changed && item.depth > 0 && pkg.Status != core.StatusBroken {
			continue
		}
		if !s.withinDepth(item.depth) {
			continue
		}

		deps, err := s.r.backend.Dependencies(ctx, pkg.Name)
		if err != nil {
			return err
		}
		for _, d := range deps {
			opt, err := s.pickOption(ctx, d)
			if err != nil {
				return err
			}
			queue = append(queue, queued{
				name:       opt.Name,
				parent:     pkg.Name,
				constraint: opt.Constraint,
				depth:      item.depth + 1,
				label:      d.String(),
			})
		}
	}

	if err := s.installConflicts(ctx); err != nil {
		return err
	}
	return s.crossCheck(ctx)
}

// pickOption chooses which option of an "a | b" dependency to follow: one
// that is installed or already planned and fits, else the first one the
// backend knows. Virtual names resolve to a provider through Query.
func (s *session) pickOption(ctx context.Context, d core.Dependency) (core.Dependency, error) {
	opts := d.Options()
	if len(opts) == 1 {
		return opts[0], nil
	}

	var known []core.Dependency
	for _, o := range opts {
		pkg, err := s.query(ctx, o.Name)
		if core.IsCode(err, core.CodePackageNotFound) {
			continue
		}
		if err != nil {
			return core.Dependency{}, err
		}
		if s.inPlan(pkg.Name) || (pkg.IsInstalled() && debver.SatisfiesConstraint(pkg.Version, o.Constraint)) {
			return o, nil
		}
		known = append(known, o)
	}
	if len(known) > 0 {
		return known[0], nil
	}
	return opts[0], nil
}

// selectVersion picks the target version for pkg. An empty result carries
// the reason no version qualifies.
func (s *session) selectVersion(ctx context.Context, pkg core.Package, item queued) (string, string) {
	available, err := s.r.backend.AvailableVersions(ctx, pkg.Name)
	if err != nil && !core.IsCode(err, core.CodePackageNotFound) {
		s.r.log.Debug().Err(err).Str("package", pkg.Name).Msg("cannot list versions")
	}

	fits := func(v string) bool {
		return v != "" && debver.SatisfiesConstraint(v, item.constraint)
	}
	known := func(v string) bool {
		return slices.ContainsFunc(available, func(a string) bool { return debver.Compare(a, v) == 0 }) ||
			(v == pkg.Version && v != "")
	}

	if item.version != "" {
		if known(item.version) && fits(item.version) {
			return item.version, ""
		}
		return "", fmt.Sprintf("version %s of %s is not available", item.version, pkg.Name)
	}

	if s.req.Mode.Offline {
		if pin, ok := s.req.Mode.PinnedVersion(pkg.Name); ok {
			if known(pin) && fits(pin) {
				return pin, ""
			}
			if !known(pin) {
				return "", fmt.Sprintf("pinned version %s of %s is not available offline", pin, pkg.Name)
			}
			return "", fmt.Sprintf("pinned version %s of %s does not satisfy %s (%s)", pin, pkg.Name, item.parent, item.constraint)
		}
	}

	isRoot := item.depth == 0
	if isRoot && !s.req.Mode.Offline && fits(pkg.Candidate) {
		return pkg.Candidate, ""
	}
	if pkg.IsInstalled() && fits(pkg.Version) {
		return pkg.Version, ""
	}
	if fits(pkg.Candidate) {
		return pkg.Candidate, ""
	}

	best := ""
	for _, v := range available {
		if fits(v) && (best == "" || debver.Compare(v, best) > 0) {
			best = v
		}
	}
	if best != "" {
		return best, ""
	}

	if item.constraint != nil {
		return "", fmt.Sprintf("%s needs %s (%s), which no known version satisfies", item.parent, pkg.Name, item.constraint)
	}
	return "", fmt.Sprintf("%s has no installable version", pkg.Name)
}

// installConflicts removes installed packages that conflict with the plan,
// or blocks when that is not allowed
func (s *session) installConflicts(ctx context.Context) error {
	var targets []string
	for name := range s.install {
		targets = append(targets, name)
	}
	for name := range s.upgrade {
		targets = append(targets, name)
	}
	sort.Strings(targets)

	for _, name := range targets {
		conflicts, err := s.r.backend.Conflicts(ctx, name)
		if err != nil {
			return err
		}
		for _, c := range conflicts {
			other := c.Other(name)
			if other == name {
				continue
			}

			if s.inPlan(other) {
				if !conflictApplies(c, name, s.plannedVersion(name), other, s.plannedVersion(other)) {
					continue
				}
				c.Unsatisfiable = true
				s.addConflict(c)
				s.block("%s and %s are both required but conflict", name, other)
				continue
			}

			otherPkg, err := s.query(ctx, other)
			if core.IsCode(err, core.CodePackageNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !otherPkg.IsInstalled() || !conflictApplies(c, name, s.plannedVersion(name), other, otherPkg.Version) {
				continue
			}
			if err := s.conflictRemoval(ctx, name, otherPkg, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// conflictApplies reports whether c holds between name and other at the
// given versions. A constraint only ever restricts side B.
func conflictApplies(c core.Conflict, name, nameVersion, other, otherVersion string) bool {
	if c.Constraint == nil {
		return true
	}
	version := otherVersion
	if c.B == name {
		version = nameVersion
	}
	return version != "" && debver.SatisfiesConstraint(version, c.Constraint)
}

func (s *session) plannedVersion(name string) string {
	if pkg, ok := s.install[name]; ok {
		return pkg.Candidate
	}
	if pkg, ok := s.upgrade[name]; ok {
		return pkg.Candidate
	}
	return ""
}

// conflictRemoval schedules the installed package other for removal so
// name can be installed, or blocks when that is not allowed
func (s *session) conflictRemoval(ctx context.Context, name string, other core.Package, c core.Conflict) error {
	switch {
	case s.protected(other.Name):
		c.Unsatisfiable = true
		s.addConflict(c)
		s.protectedAdjacent = true
		s.block("installing %s requires removing protected package %s", name, other.Name)
	case s.req.NoNewRemovals || s.exempt(other.Name):
		c.Unsatisfiable = true
		s.addConflict(c)
		s.block("installing %s requires removing %s", name, other.Name)
	default:
		c.Removal = other.Name
		s.addConflict(c)
		s.scheduleRemoval(other, core.RemovalConflict)
		return s.removeDependents(ctx, other.Name)
	}
	return nil
}

// crossCheck dry-runs the install with the backend. Removals the declared
// relations did not predict, such as a conflict only the installed package
// declares, join the plan as conflict removals so they need confirmation
// like any other implicit removal.
func (s *session) crossCheck(ctx context.Context) error {
	sim, ok := s.r.backend.(Simulator)
	if !ok || len(s.blockers) > 0 {
		return nil
	}

	var targets []syspkg.Target
	for _, pkg := range append(sortedPackages(s.install), sortedPackages(s.upgrade)...) {
		targets = append(targets, syspkg.Target{Name: pkg.Name, Version: pkg.Candidate})
	}
	if len(targets) == 0 {
		return nil
	}

	out, err := sim.Simulate(ctx, core.OperationInstall, targets, syspkg.Flags{Force: core.ForceNone})
	if err != nil {
		s.block("backend cannot carry out the install of %s: %v", s.req.Name, err)
		return nil
	}

	for _, name := range out.Removals {
		if _, ok := s.remove[name]; ok || s.inPlan(name) {
			continue
		}
		pkg, err := s.query(ctx, name)
		if core.IsCode(err, core.CodePackageNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !pkg.IsInstalled() {
			continue
		}

		s.r.log.Debug().Str("package", s.req.Name).Str("removal", name).Msg("backend removes a package the relations did not predict")
		c := core.Conflict{
			A:      s.req.Name,
			B:      name,
			Reason: fmt.Sprintf("installing %s makes the backend remove %s", s.req.Name, name),
		}
		if err := s.conflictRemoval(ctx, s.req.Name, pkg, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) resolveRemove(ctx context.Context, root core.Package) error {
	if !root.IsInstalled() {
		return nil
	}
	if s.protected(root.Name) {
		s.protectedAdjacent = true
		s.block("%s is protected and cannot be removed", root.Name)
		return nil
	}

	s.scheduleRemoval(root, core.RemovalExplicit)
	if err := s.removeDependents(ctx, root.Name); err != nil {
		return err
	}
	if s.req.NoNewRemovals {
		return nil
	}
	return s.collectOrphans(ctx)
}

// resolveCleanup schedules automatically installed packages nothing
// depends on any more, then whatever only they kept around
func (s *session) resolveCleanup(ctx context.Context) error {
	seeds, err := s.orphanSeeds(ctx)
	if err != nil {
		return err
	}

	for _, name := range seeds {
		pkg, err := s.query(ctx, name)
		if core.IsCode(err, core.CodePackageNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !pkg.IsInstalled() {
			continue
		}
		switch {
		case s.protected(pkg.Name):
			s.retained[pkg.Name] = true
		case s.exempt(pkg.Name):
		default:
			s.scheduleRemoval(pkg, core.RemovalAutoRemovable)
		}
	}
	if s.req.NoNewRemovals {
		return nil
	}
	return s.collectOrphans(ctx)
}

// orphanSeeds asks the backend for its own orphan list when it keeps one,
// otherwise scans installed automatic packages without reverse dependencies
func (s *session) orphanSeeds(ctx context.Context) ([]string, error) {
	if finder, ok := s.r.backend.(syspkg.OrphanFinder); ok {
		names, err := finder.Orphans(ctx)
		if err != nil {
			return nil, err
		}
		sort.Strings(names)
		return names, nil
	}

	installed, err := s.r.backend.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, pkg := range installed {
		if !pkg.AutoInstalled {
			continue
		}
		rdeps, err := s.reverseDeps(ctx, pkg.Name)
		if err != nil {
			return nil, err
		}
		if len(rdeps) == 0 {
			names = append(names, pkg.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// removeDependents walks the installed reverse-dependency closure of start
func (s *session) removeDependents(ctx context.Context, start string) error {
	type item struct {
		name  string
		depth int
	}
	queue := []item{{name: start}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !s.withinDepth(cur.depth) {
			continue
		}

		rdeps, err := s.reverseDeps(ctx, cur.name)
		if err != nil {
			return err
		}
		for _, rd := range rdeps {
			if _, ok := s.remove[rd.Name]; ok || s.retained[rd.Name] || s.inPlan(rd.Name) {
				continue
			}

			switch {
			case s.protected(rd.Name):
				s.protectedAdjacent = true
				s.block("removing %s would break protected package %s", cur.name, rd.Name)
			case s.exempt(rd.Name) || s.req.NoNewRemovals:
				s.retained[rd.Name] = true
				s.force = s.force.Max(core.ForceDepends)
			default:
				s.scheduleRemoval(rd, core.RemovalDependent)
				queue = append(queue, item{name: rd.Name, depth: cur.depth + 1})
			}
		}
	}
	return nil
}

// collectOrphans finds automatically installed dependencies that nothing
// outside the removal set needs any more
func (s *session) collectOrphans(ctx context.Context) error {
	work := make([]string, 0, len(s.remove))
	for name := range s.remove {
		work = append(work, name)
	}
	sort.Strings(work)
	checked := make(map[string]bool)

	for len(work) > 0 {
		name := work[0]
		work = work[1:]

		deps, err := s.r.backend.Dependencies(ctx, name)
		if core.IsCode(err, core.CodePackageNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		for _, dep := range deps {
			for _, depName := range dep.Names() {
				pkg, err := s.query(ctx, depName)
				if core.IsCode(err, core.CodePackageNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if _, ok := s.remove[pkg.Name]; ok || s.retained[pkg.Name] || checked[pkg.Name] {
					continue
				}
				if !pkg.IsInstalled() || !pkg.AutoInstalled {
					continue
				}

				orphan, err := s.onlyNeededByRemovals(ctx, pkg.Name)
				if err != nil {
					return err
				}
				if !orphan {
					continue
				}
				checked[pkg.Name] = true

				switch {
				case s.protected(pkg.Name):
					s.retained[pkg.Name] = true
					s.protectedAdjacent = true
				case s.exempt(pkg.Name):
				default:
					s.scheduleRemoval(pkg, core.RemovalAutoRemovable)
					work = append(work, pkg.Name)
				}
			}
		}
	}
	return nil
}

func (s *session) onlyNeededByRemovals(ctx context.Context, name string) (bool, error) {
	rdeps, err := s.reverseDeps(ctx, name)
	if err != nil {
		return false, err
	}
	for _, rd := range rdeps {
		if _, ok := s.remove[rd.Name]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *session) requiredByProtected(ctx context.Context, name string) bool {
	rdeps, err := s.reverseDeps(ctx, name)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(rdeps, func(p core.Package) bool { return s.protected(p.Name) })
}

func (s *session) build(ctx context.Context) (*core.DependencyPlan, error) {
	plan := &core.DependencyPlan{
		Operation:     s.req.Operation,
		Reasons:       make(map[string]core.RemovalReason, len(s.reasons)),
		RequiredForce: s.force,
		Purge:         s.req.Purge,
	}
	if s.req.Name != "" {
		plan.Requested = []string{s.req.Name}
	}

	plan.ToInstall = sortedPackages(s.install)
	plan.ToUpgrade = sortedPackages(s.upgrade)

	cands := make([]Candidate, 0, len(s.remove))
	for name, pkg := range s.remove {
		if s.protected(name) {
			return nil, core.NewErrorf(core.CodeProtectionViolation, "protected package %s scheduled for removal", name)
		}
		cands = append(cands, Candidate{
			Name:                name,
			Custom:              pkg.IsCustom,
			Removable:           s.r.policy.IsRemovable(name),
			RequiredByProtected: s.requiredByProtected(ctx, name),
		})
	}
	for _, c := range RankRemovals(cands, s.r.opts.TieBreak) {
		plan.ToRemove = append(plan.ToRemove, s.remove[c.Name])
		plan.Reasons[c.Name] = s.reasons[c.Name]
	}

	keys := make([]string, 0, len(s.conflicts))
	for key := range s.conflicts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		plan.Conflicts = append(plan.Conflicts, s.conflicts[key])
	}

	plan.Blockers = uniqueSorted(s.blockers)
	for name := range s.retained {
		plan.Retained = append(plan.Retained, name)
	}
	sort.Strings(plan.Retained)

	plan.RequiresUserConfirmation = len(plan.ImplicitRemovals()) > 0 || s.protectedAdjacent

	if err := plan.Validate(); err != nil {
		return nil, core.WrapError(err, core.CodeUnsatisfiableDependency, "inconsistent plan")
	}
	return plan, nil
}

func sortedPackages(m map[string]core.Package) []core.Package {
	out := make([]core.Package, 0, len(m))
	for _, pkg := range m {
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}
