package conflict

import (
	"context"
	"slices"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/quantmind-br/dpm/internal/transaction"
	"github.com/rs/zerolog"
)

// Ladder step names
const (
	StrategyMarkManual    = "mark-manual"
	StrategyNoNewRemovals = "no-new-removals"
	StrategyEscalate      = "escalate-force"
)

// Env is what a strategy may use. Changes to the package database must be
// registered on Tx so they can be undone.
type Env struct {
	Resolver Resolver
	Backend  Backend
	Request  resolver.Request
	Tx       *transaction.Manager
	Log      *zerolog.Logger
}

// StrategyResult is the outcome of one ladder step
type StrategyResult struct {
	OK    bool
	Plan  *core.DependencyPlan
	Force core.ForceLevel
	Note  string
}

// Strategy is one step of the ladder
type Strategy struct {
	Name string
	Run  func(ctx context.Context, env *Env, plan *core.DependencyPlan) StrategyResult
}

// DefaultLadder returns the steps in the order they are tried
func DefaultLadder() []Strategy {
	return []Strategy{
		{Name: StrategyMarkManual, Run: markManual},
		{Name: StrategyNoNewRemovals, Run: noNewRemovals},
		{Name: StrategyEscalate, Run: escalateForce},
	}
}

func failed(note string) StrategyResult {
	return StrategyResult{Note: note}
}

// markManual exempts custom packages the plan would drop as dependents or
// orphans, then re-resolves
func markManual(ctx context.Context, env *Env, plan *core.DependencyPlan) StrategyResult {
	var names, wasAuto []string
	for _, pkg := range plan.ImplicitRemovals() {
		reason := plan.Reasons[pkg.Name]
		if !pkg.IsCustom || (reason != core.RemovalDependent && reason != core.RemovalAutoRemovable) {
			continue
		}
		names = append(names, pkg.Name)
		if pkg.AutoInstalled {
			wasAuto = append(wasAuto, pkg.Name)
		}
	}
	if len(names) == 0 {
		return failed("no custom dependents to exempt")
	}

	if err := env.Backend.MarkManual(ctx, names...); err != nil {
		return failed(err.Error())
	}
	env.Tx.Add("mark-manual", func(ctx context.Context) error {
		if len(wasAuto) == 0 {
			return nil
		}
		return env.Backend.MarkAuto(ctx, wasAuto...)
	})

	req := env.Request
	req.Exempt = append(slices.Clone(req.Exempt), names...)
	next, err := env.Resolver.Resolve(ctx, req)
	if err != nil {
		return failed(err.Error())
	}
	if next.Unsatisfiable() || next.RequiresUserConfirmation {
		return failed("re-resolved plan still needs confirmation")
	}
	return StrategyResult{OK: true, Plan: next, Force: next.RequiredForce}
}

// noNewRemovals re-resolves allowing no removal beyond the named package,
// and checks with the backend that nothing else goes
func noNewRemovals(ctx context.Context, env *Env, _ *core.DependencyPlan) StrategyResult {
	next, note := resolveNoNewRemovals(ctx, env)
	if next == nil {
		return failed(note)
	}
	if next.RequiredForce.Rank() > core.ForceNone.Rank() {
		return failed("plan leaves dependents without their dependency")
	}
	if ok, note := simulateWithin(ctx, env, next, core.ForceNone); !ok {
		return failed(note)
	}
	return StrategyResult{OK: true, Plan: next, Force: core.ForceNone}
}

// escalateForce retries the no-new-removals plan with increasing backend
// force levels
func escalateForce(ctx context.Context, env *Env, _ *core.DependencyPlan) StrategyResult {
	next, note := resolveNoNewRemovals(ctx, env)
	if next == nil {
		return failed(note)
	}
	for _, level := range []core.ForceLevel{core.ForceDepends, core.ForceAll} {
		ok, n := simulateWithin(ctx, env, next, level)
		if ok {
			return StrategyResult{OK: true, Plan: next, Force: level.Max(next.RequiredForce)}
		}
		note = n
	}
	return failed(note)
}

func resolveNoNewRemovals(ctx context.Context, env *Env) (*core.DependencyPlan, string) {
	req := env.Request
	req.NoNewRemovals = true
	next, err := env.Resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err.Error()
	}
	if next.Unsatisfiable() || next.RequiresUserConfirmation {
		return nil, "plan still needs confirmation without new removals"
	}
	return next, ""
}

// simulateWithin asks the backend to simulate plan at level and reports
// whether it removes only what the caller named
func simulateWithin(ctx context.Context, env *Env, plan *core.DependencyPlan, level core.ForceLevel) (bool, string) {
	var targets []syspkg.Target
	switch plan.Operation {
	case core.OperationRemove:
		for _, pkg := range plan.ToRemove {
			targets = append(targets, syspkg.Target{Name: pkg.Name})
		}
	default:
		for _, pkg := range append(slices.Clone(plan.ToInstall), plan.ToUpgrade...) {
			targets = append(targets, syspkg.Target{Name: pkg.Name, Version: pkg.Candidate})
		}
	}
	if len(targets) == 0 {
		return true, ""
	}

	sim, err := env.Backend.Simulate(ctx, plan.Operation, targets, syspkg.Flags{Force: level, Purge: plan.Purge})
	if err != nil {
		return false, err.Error()
	}
	for _, name := range sim.Removals {
		if !plan.IsRequested(name) {
			return false, "backend would also remove " + name
		}
	}
	return true, ""
}
