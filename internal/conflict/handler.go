// Package conflict turns a resolver plan into a decision: proceed, ask the
// user, or give up. Forced requests walk a ladder of strategies that try
// to shrink the plan's destructive side effects first.
package conflict

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/quantmind-br/dpm/internal/transaction"
	"github.com/rs/zerolog"
)

// Kind is the outcome of Handle
type Kind string

const (
	KindProceed           Kind = "proceed"
	KindNeedsConfirmation Kind = "needs-confirmation"
	KindBlocked           Kind = "blocked"
)

// Strategy names reported when the original plan is used
const (
	StrategyConfirmed = "confirmed"
)

// Resolver re-resolves requests with extra constraints
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*core.DependencyPlan, error)
}

// Backend is the subset of the package backend the ladder touches
type Backend interface {
	MarkManual(ctx context.Context, names ...string) error
	MarkAuto(ctx context.Context, names ...string) error
	Simulate(ctx context.Context, op core.Operation, targets []syspkg.Target, flags syspkg.Flags) (*syspkg.Simulation, error)
}

// Classifier groups and rates packages for the impact summary
type Classifier interface {
	IsProtected(name string) bool
	Group(pkgs []core.Package) core.ImpactGroup
	HighestRisk(pkgs []core.Package) core.RiskLevel
}

// Config mirrors the force_confirmation_required and auto_resolve_conflicts
// settings
type Config struct {
	ForceConfirmationRequired bool
	AutoResolve               bool
}

// Options are per-call inputs
type Options struct {
	Force     bool
	Confirmed bool
	// Request is the resolver request that produced the plan
	Request resolver.Request
}

// Resolution is the decision for one plan
type Resolution struct {
	Kind     Kind                 `json:"kind" yaml:"kind"`
	Plan     *core.DependencyPlan `json:"plan" yaml:"plan"`
	Summary  core.ImpactSummary   `json:"summary" yaml:"summary"`
	Reason   string               `json:"reason,omitempty" yaml:"reason,omitempty"`
	Force    core.ForceLevel      `json:"force" yaml:"force"`
	Strategy string               `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// Handler applies the confirmation gate and the strategy ladder
type Handler struct {
	resolver   Resolver
	backend    Backend
	classifier Classifier
	cfg        Config
	ladder     []Strategy
	log        *zerolog.Logger
}

// New creates a handler using DefaultLadder
func New(res Resolver, backend Backend, classifier Classifier, cfg Config, log *zerolog.Logger) *Handler {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Handler{
		resolver:   res,
		backend:    backend,
		classifier: classifier,
		cfg:        cfg,
		ladder:     DefaultLadder(),
		log:        log,
	}
}

// WithLadder replaces the strategy ladder
func (h *Handler) WithLadder(ladder []Strategy) *Handler {
	h.ladder = ladder
	return h
}

// Handle decides what to do with plan. A protected package in any plan
// leaving the handler is a ProtectionViolation error.
func (h *Handler) Handle(ctx context.Context, plan *core.DependencyPlan, opts Options) (*Resolution, error) {
	if err := h.checkProtection(plan, opts.Request.Mode); err != nil {
		return nil, err
	}

	res := &Resolution{
		Plan:    plan,
		Summary: h.Summarize(plan),
		Force:   plan.RequiredForce.Max(core.ForceNone),
	}

	if plan.Unsatisfiable() {
		res.Kind = KindBlocked
		res.Reason = strings.Join(plan.Blockers, "; ")
		return res, nil
	}

	if !plan.RequiresUserConfirmation {
		res.Kind = KindProceed
		return res, nil
	}

	if !opts.Force {
		res.Kind = KindNeedsConfirmation
		res.Reason = "plan removes packages that were not requested"
		return res, nil
	}

	// a confirmed plan is the one the user saw; the ladder could change it
	if h.cfg.AutoResolve && !opts.Confirmed {
		ladderRes, err := h.runLadder(ctx, plan, opts)
		if err != nil || ladderRes != nil {
			return ladderRes, err
		}
	}

	if opts.Confirmed || !h.cfg.ForceConfirmationRequired {
		res.Kind = KindProceed
		res.Strategy = StrategyConfirmed
		return res, nil
	}

	res.Kind = KindNeedsConfirmation
	res.Reason = "no strategy avoided the implicit removals"
	return res, nil
}

func (h *Handler) runLadder(ctx context.Context, plan *core.DependencyPlan, opts Options) (*Resolution, error) {
	tx := transaction.NewManager(h.log)
	env := &Env{
		Resolver: h.resolver,
		Backend:  h.backend,
		Request:  opts.Request,
		Tx:       tx,
		Log:      h.log,
	}

	for _, s := range h.ladder {
		out := s.Run(ctx, env, plan)
		if !out.OK {
			h.log.Debug().Str("strategy", s.Name).Str("note", out.Note).Msg("strategy did not apply")
			continue
		}

		if err := h.checkProtection(out.Plan, opts.Request.Mode); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				h.log.Warn().Err(rbErr).Msg("undoing strategy changes failed")
			}
			return nil, err
		}

		tx.Commit()
		h.log.Info().Str("strategy", s.Name).Str("force", string(out.Force)).Msg("conflict resolved")
		return &Resolution{
			Kind:     KindProceed,
			Plan:     out.Plan,
			Summary:  h.Summarize(out.Plan),
			Force:    out.Force.Max(core.ForceNone),
			Strategy: s.Name,
		}, nil
	}

	if err := tx.Rollback(ctx); err != nil {
		h.log.Warn().Err(err).Msg("undoing strategy changes failed")
	}
	return nil, nil
}

func (h *Handler) checkProtection(plan *core.DependencyPlan, mode core.ModeSnapshot) error {
	if plan == nil {
		return core.NewError(core.CodeProtectionViolation, "no plan to check")
	}
	for _, pkg := range plan.ToRemove {
		if h.classifier.IsProtected(pkg.Name) || mode.IsProtected(pkg.Name) {
			return core.NewErrorf(core.CodeProtectionViolation, "protected package %s reached a removal plan", pkg.Name).
				WithDetail("package", pkg.Name)
		}
	}
	return nil
}

// Summarize builds the impact summary shown before confirmation
func (h *Handler) Summarize(plan *core.DependencyPlan) core.ImpactSummary {
	sum := core.ImpactSummary{
		Install:  h.classifier.Group(plan.ToInstall),
		Remove:   h.classifier.Group(plan.ToRemove),
		Upgrade:  h.classifier.Group(plan.ToUpgrade),
		Blockers: plan.Blockers,
		Retained: plan.Retained,
		Risk:     h.classifier.HighestRisk(plan.ToRemove),
	}
	for _, c := range plan.Conflicts {
		line := fmt.Sprintf("%s conflicts with %s", c.A, c.B)
		if c.Removal != "" {
			line += fmt.Sprintf(" (removing %s)", c.Removal)
		}
		sum.Conflicts = append(sum.Conflicts, line)
	}
	return sum
}
