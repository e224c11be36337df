// Package engine is the single entry point for package operations. It
// validates input, asks the resolver for a plan, lets the conflict handler
// decide, executes the plan against the backend and journals the outcome.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quantmind-br/dpm/internal/classifier"
	"github.com/quantmind-br/dpm/internal/conflict"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/db"
	"github.com/quantmind-br/dpm/internal/debver"
	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/quantmind-br/dpm/internal/mode"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/security"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Journal records operation outcomes
type Journal interface {
	Record(ctx context.Context, op *db.Operation) error
}

// Planner computes dependency plans
type Planner interface {
	Resolve(ctx context.Context, req resolver.Request) (*core.DependencyPlan, error)
}

// Step is reported before each backend mutation
type Step struct {
	Index   int
	Total   int
	Action  string
	Package string
	Version string
}

// ProgressFunc receives plan execution steps
type ProgressFunc func(Step)

// Step actions
const (
	ActionRemove  = "remove"
	ActionInstall = "install"
	ActionUpgrade = "upgrade"
)

// Options wires the engine's collaborators. Journal, Commands and
// Progress are optional. Fs defaults to the OS filesystem.
type Options struct {
	Backend    syspkg.Backend
	Classifier *classifier.Classifier
	Modes      *mode.Manager
	Resolver   Planner
	Handler    *conflict.Handler
	Journal    Journal
	Commands   helpers.CommandRunner
	Progress   ProgressFunc
	Logger     *zerolog.Logger

	Fs           afero.Fs
	AptCacheDir  string
	OfflineRepos []string
}

// Engine serializes and executes package operations
type Engine struct {
	mu         sync.Mutex
	backend    syspkg.Backend
	classifier *classifier.Classifier
	modes      *mode.Manager
	resolver   Planner
	handler    *conflict.Handler
	journal    Journal
	commands   helpers.CommandRunner
	progress   ProgressFunc
	log        *zerolog.Logger
	now        func() time.Time

	fs           afero.Fs
	aptCacheDir  string
	offlineRepos []string
}

// New creates an engine
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Engine{
		backend:    opts.Backend,
		classifier: opts.Classifier,
		modes:      opts.Modes,
		resolver:   opts.Resolver,
		handler:    opts.Handler,
		journal:    opts.Journal,
		commands:   opts.Commands,
		progress:   opts.Progress,
		log:        log,
		now:        time.Now,

		fs:           fs,
		aptCacheDir:  opts.AptCacheDir,
		offlineRepos: opts.OfflineRepos,
	}
}

// SetProgress replaces the progress callback
func (e *Engine) SetProgress(fn ProgressFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = fn
}

// InstallRequest asks for name to be installed. Mode overrides the
// configured mode for this call only.
type InstallRequest struct {
	Name      string
	Version   string
	Force     bool
	Confirmed bool
	Mode      *core.Mode
}

// RemoveRequest asks for name to be removed
type RemoveRequest struct {
	Name      string
	Force     bool
	Confirmed bool
	Purge     bool
}

// Install resolves and installs req.Name. The returned error is non-nil
// only for protection violations; every other failure is in the result.
func (e *Engine) Install(ctx context.Context, req InstallRequest) (*core.OperationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := core.NewResult(core.OperationInstall, req.Name)
	res.StartedAt = e.now()
	defer e.finish(ctx, res, req.Version)

	if err := security.ValidatePackageName(req.Name); err != nil {
		res.AddError(err)
		return res, nil
	}
	if req.Version != "" {
		if err := security.ValidateVersion(req.Version); err != nil {
			res.AddError(err)
			return res, nil
		}
	}

	snap := e.snapshot(ctx, req.Mode, res)
	return e.run(ctx, res, resolver.Request{
		Name:      req.Name,
		Operation: core.OperationInstall,
		Version:   req.Version,
		Mode:      snap,
	}, req.Force, req.Confirmed)
}

// Remove resolves and removes req.Name
func (e *Engine) Remove(ctx context.Context, req RemoveRequest) (*core.OperationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := core.NewResult(core.OperationRemove, req.Name)
	res.StartedAt = e.now()
	defer e.finish(ctx, res, "")

	if err := security.ValidatePackageName(req.Name); err != nil {
		res.AddError(err)
		return res, nil
	}

	snap := e.snapshot(ctx, nil, res)
	return e.run(ctx, res, resolver.Request{
		Name:      req.Name,
		Operation: core.OperationRemove,
		Mode:      snap,
		Purge:     req.Purge,
	}, req.Force, req.Confirmed)
}

// snapshot takes the mode state for one operation. A failed auto-detection
// keeps the last known mode.
func (e *Engine) snapshot(ctx context.Context, override *core.Mode, res *core.OperationResult) core.ModeSnapshot {
	snap := e.modes.State().Snapshot()

	offline := snap.Offline
	if override != nil {
		offline = *override == core.ModeOffline
	} else {
		detected, err := e.modes.IsOfflineMode(ctx)
		if err != nil {
			res.AddWarning("mode detection failed, staying %s: %v", snap.Mode(), err)
		} else {
			offline = detected
		}
	}

	snap = snap.WithOffline(offline)
	res.Mode = snap.Mode()
	return snap
}

func (e *Engine) run(ctx context.Context, res *core.OperationResult, req resolver.Request, force, confirmed bool) (*core.OperationResult, error) {
	log := e.log.With().Str("package", req.Name).Str("operation", string(req.Operation)).Logger()

	plan, err := e.resolver.Resolve(ctx, req)
	if plan == nil {
		if core.IsCode(err, core.CodePackageNotFound) {
			if hints := e.suggest(ctx, req.Name); len(hints) > 0 {
				res.AddWarning("did you mean: %s", strings.Join(hints, ", "))
			}
		}
		res.AddError(err)
		if core.IsCode(err, core.CodeProtectionViolation) {
			log.Error().Err(err).Msg("protection violation")
			return res, err
		}
		return res, nil
	}

	resolution, herr := e.handler.Handle(ctx, plan, conflict.Options{
		Force:     force,
		Confirmed: confirmed,
		Request:   req,
	})
	if herr != nil {
		res.AddError(herr)
		if core.IsCode(herr, core.CodeProtectionViolation) {
			log.Error().Err(herr).Msg("protection violation")
			return res, herr
		}
		return res, nil
	}

	res.Plan = resolution.Plan
	res.Summary = &resolution.Summary
	res.Strategy = resolution.Strategy
	res.Force = resolution.Force

	switch resolution.Kind {
	case conflict.KindBlocked:
		if err == nil {
			err = core.NewError(core.CodeUnsatisfiableDependency, resolution.Reason)
		}
		res.AddError(err)
		return res, nil

	case conflict.KindNeedsConfirmation:
		res.UserConfirmationsRequired = append(res.UserConfirmationsRequired, confirmationFor(req, resolution))
		log.Info().Str("reason", resolution.Reason).Msg("confirmation required")
		return res, nil
	}

	if resolution.Plan.IsEmpty() {
		switch req.Operation {
		case core.OperationInstall:
			res.AddWarning("%s is already installed", req.Name)
		case core.OperationRemove:
			res.AddWarning("%s is not installed", req.Name)
		case core.OperationCleanup:
			res.AddWarning("no orphaned packages")
		}
		res.Success = true
		return res, nil
	}

	log.Info().
		Str("strategy", resolution.Strategy).
		Str("force", string(resolution.Force)).
		Msg("executing plan")

	e.execute(ctx, res, resolution)
	return res, nil
}

func confirmationFor(req resolver.Request, resolution *conflict.Resolution) core.ConfirmationRequest {
	plan := resolution.Plan
	var items []string
	for _, pkg := range plan.ImplicitRemovals() {
		items = append(items, fmt.Sprintf("remove %s (%s)", pkg.Name, plan.Reasons[pkg.Name]))
	}
	for _, pkg := range plan.ToUpgrade {
		items = append(items, fmt.Sprintf("upgrade %s %s -> %s", pkg.Name, pkg.Version, pkg.Candidate))
	}
	for _, name := range plan.Retained {
		items = append(items, fmt.Sprintf("keep %s installed", name))
	}
	items = append(items, resolution.Summary.Conflicts...)

	id := string(req.Operation)
	title := fmt.Sprintf("Confirm %s", req.Operation)
	if req.Name != "" {
		id += "-" + req.Name
		title += " of " + req.Name
	}
	return core.ConfirmationRequest{
		ID:          id,
		Title:       title,
		Description: resolution.Reason,
		Items:       items,
		Default:     false,
	}
}

type step struct {
	action string
	pkg    core.Package
}

// schedule orders a plan: removals with dependents before their
// dependencies, then installs after their dependencies, then upgrades.
func schedule(plan *core.DependencyPlan) []step {
	var steps []step
	for _, pkg := range removalOrder(plan.ToRemove) {
		steps = append(steps, step{action: ActionRemove, pkg: pkg})
	}
	for _, pkg := range installOrder(plan.ToInstall) {
		steps = append(steps, step{action: ActionInstall, pkg: pkg})
	}
	for _, pkg := range installOrder(plan.ToUpgrade) {
		steps = append(steps, step{action: ActionUpgrade, pkg: pkg})
	}
	return steps
}

func (e *Engine) execute(ctx context.Context, res *core.OperationResult, resolution *conflict.Resolution) {
	plan := resolution.Plan
	flags := syspkg.Flags{Force: resolution.Force, Purge: plan.Purge}
	steps := schedule(plan)

	var done []string
	for i, st := range steps {
		version := ""
		if st.action != ActionRemove {
			version = st.pkg.TargetVersion()
		}
		if e.progress != nil {
			e.progress(Step{Index: i + 1, Total: len(steps), Action: st.action, Package: st.pkg.Name, Version: version})
		}

		stepFlags := flags
		stepFlags.Downgrade = st.action == ActionUpgrade && st.pkg.Version != "" &&
			debver.Compare(version, st.pkg.Version) < 0

		var err error
		if st.action == ActionRemove {
			err = e.backend.Remove(ctx, st.pkg.Name, stepFlags)
		} else {
			err = e.backend.Install(ctx, st.pkg.Name, version, stepFlags)
		}
		if err != nil {
			e.log.Error().Err(err).Str("package", st.pkg.Name).Str("action", st.action).Msg("backend step failed")
			res.AddError(core.WrapErrorf(err, core.CodeBackendFailure, "%s %s", st.action, st.pkg.Name))
			if i+1 < len(steps) {
				res.AddWarning("%d remaining step(s) skipped", len(steps)-i-1)
			}
			e.consistencyPass(ctx, res)
			res.PackagesAffected = e.requery(ctx, done)
			return
		}
		done = append(done, st.pkg.Name)
	}

	// individual name=version installs leave dependencies marked manual
	var auto []string
	for _, pkg := range plan.ToInstall {
		if !plan.IsRequested(pkg.Name) {
			auto = append(auto, pkg.Name)
		}
	}
	if len(auto) > 0 {
		if err := e.backend.MarkAuto(ctx, auto...); err != nil {
			res.AddWarning("could not mark dependencies as automatically installed: %v", err)
		}
	}

	res.PackagesAffected = e.requery(ctx, done)
	res.Success = len(res.Errors) == 0
}

// consistencyPass reports what a failed step left broken. Nothing is
// rolled back.
func (e *Engine) consistencyPass(ctx context.Context, res *core.OperationResult) {
	broken, err := e.backend.Broken(ctx)
	if err != nil {
		res.AddWarning("consistency check failed: %v", err)
		return
	}
	for _, pkg := range broken {
		res.AddWarning("%s is left in a broken state; run 'dpm fix'", pkg.Name)
	}
}

func (e *Engine) requery(ctx context.Context, names []string) []core.Package {
	out := make([]core.Package, 0, len(names))
	for _, name := range names {
		pkg, err := e.backend.Query(ctx, name)
		if err != nil {
			e.log.Debug().Err(err).Str("package", name).Msg("re-query failed")
			continue
		}
		out = append(out, e.classifier.Annotate(pkg))
	}
	return out
}

// finish stamps the duration and journals the outcome
func (e *Engine) finish(ctx context.Context, res *core.OperationResult, version string) {
	res.Duration = e.now().Sub(res.StartedAt)
	if e.journal == nil {
		return
	}

	op := &db.Operation{
		Operation: string(res.Operation),
		Package:   res.Package,
		Version:   version,
		Success:   res.Success,
		Mode:      string(res.Mode),
		Force:     string(res.Force),
		Strategy:  res.Strategy,
		Affected:  core.Names(res.PackagesAffected),
		Warnings:  res.Warnings,
		Errors:    res.Errors,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if res.NeedsConfirmation() {
		op.Warnings = append(op.Warnings, "awaiting confirmation")
	}
	if err := e.journal.Record(ctx, op); err != nil {
		res.AddWarning("could not record operation history: %v", err)
	}
}
