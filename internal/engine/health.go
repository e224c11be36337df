package engine

import (
	"context"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/mode"
	"github.com/quantmind-br/dpm/internal/syspkg"
)

// RequiredCommands are the tools the apt backend shells out to
var RequiredCommands = []string{"apt-get", "apt-cache", "apt-mark", "dpkg", "dpkg-query"}

// HealthReport is the result of "dpm health"
type HealthReport struct {
	Healthy         bool                `json:"healthy" yaml:"healthy"`
	Backend         string              `json:"backend" yaml:"backend"`
	Broken          []string            `json:"broken,omitempty" yaml:"broken,omitempty"`
	Locks           []syspkg.LockStatus `json:"locks,omitempty" yaml:"locks,omitempty"`
	PinIssues       []mode.PinIssue     `json:"pin_issues,omitempty" yaml:"pin_issues,omitempty"`
	Mode            *mode.Status        `json:"mode" yaml:"mode"`
	MissingCommands []string            `json:"missing_commands,omitempty" yaml:"missing_commands,omitempty"`
	Warnings        []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Health inspects the package database and dpm's own configuration
func (e *Engine) Health(ctx context.Context) (*HealthReport, error) {
	report := &HealthReport{Backend: e.backend.Name(), Healthy: true}

	broken, err := e.backend.Broken(ctx)
	if err != nil {
		return nil, core.WrapError(err, core.CodeBackendFailure, "list broken packages")
	}
	report.Broken = core.Names(broken)
	if len(report.Broken) > 0 {
		report.Healthy = false
	}

	if inspector, ok := e.backend.(syspkg.LockInspector); ok {
		locks, err := inspector.Locks(ctx)
		if err != nil {
			report.Warnings = append(report.Warnings, "lock inspection failed: "+err.Error())
		}
		for _, l := range locks {
			if l.Held {
				report.Locks = append(report.Locks, l)
				report.Healthy = false
			}
		}
	}

	issues, err := e.modes.ValidatePins(ctx, e.backend)
	if err != nil {
		report.Warnings = append(report.Warnings, "pin validation failed: "+err.Error())
	}
	report.PinIssues = issues
	if len(issues) > 0 {
		report.Healthy = false
	}

	report.Mode = e.modes.Status(ctx)
	for _, hook := range []*mode.HookStatus{report.Mode.OfflineHook, report.Mode.OnlineHook} {
		if hook != nil && !hook.Available {
			report.Warnings = append(report.Warnings, "mode hook is not executable: "+hook.Path)
		}
	}
	if report.Mode.DetectError != "" {
		report.Warnings = append(report.Warnings, "mode detection failed: "+report.Mode.DetectError)
	}

	if e.commands != nil {
		for _, name := range RequiredCommands {
			if !e.commands.CommandExists(name) {
				report.MissingCommands = append(report.MissingCommands, name)
				report.Healthy = false
			}
		}
	}
	return report, nil
}

// FixBroken asks the backend to finish interrupted operations and reports
// what is still broken afterwards
func (e *Engine) FixBroken(ctx context.Context) (*core.OperationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := core.NewResult(core.OperationFixBroken, "")
	res.StartedAt = e.now()
	defer e.finish(ctx, res, "")

	before, err := e.backend.Broken(ctx)
	if err != nil {
		res.AddError(core.WrapError(err, core.CodeBackendFailure, "list broken packages"))
		return res, nil
	}

	if err := e.backend.FixBroken(ctx); err != nil {
		res.AddError(core.WrapError(err, core.CodeBackendFailure, "fix broken packages"))
		e.consistencyPass(ctx, res)
		return res, nil
	}

	res.PackagesAffected = e.requery(ctx, core.Names(before))
	e.consistencyPass(ctx, res)
	res.Success = true
	return res, nil
}
