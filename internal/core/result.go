package core

import (
	"fmt"
	"time"
)

// OperationResult is what the engine returns for every operation
type OperationResult struct {
	Success                   bool                  `json:"success" yaml:"success"`
	Operation                 Operation             `json:"operation" yaml:"operation"`
	Package                   string                `json:"package,omitempty" yaml:"package,omitempty"`
	Mode                      Mode                  `json:"mode,omitempty" yaml:"mode,omitempty"`
	PackagesAffected          []Package             `json:"packages_affected" yaml:"packages_affected"`
	Warnings                  []string              `json:"warnings" yaml:"warnings"`
	Errors                    []string              `json:"errors" yaml:"errors"`
	UserConfirmationsRequired []ConfirmationRequest `json:"user_confirmations_required" yaml:"user_confirmations_required"`
	Strategy                  string                `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Force                     ForceLevel            `json:"force,omitempty" yaml:"force,omitempty"`
	Plan                      *DependencyPlan       `json:"plan,omitempty" yaml:"plan,omitempty"`
	Summary                   *ImpactSummary        `json:"summary,omitempty" yaml:"summary,omitempty"`
	FreedBytes                int64                 `json:"freed_bytes,omitempty" yaml:"freed_bytes,omitempty"`
	CleanedPaths              []string              `json:"cleaned_paths,omitempty" yaml:"cleaned_paths,omitempty"`
	StartedAt                 time.Time             `json:"started_at" yaml:"started_at"`
	Duration                  time.Duration         `json:"duration" yaml:"duration"`

	codes []ErrorCode
}

// NewResult starts a result for op on name
func NewResult(op Operation, name string) *OperationResult {
	return &OperationResult{
		Operation: op,
		Package:   name,
		StartedAt: time.Now(),
	}
}

// AddWarning appends a formatted warning
func (r *OperationResult) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddError records err and marks the result failed
func (r *OperationResult) AddError(err error) {
	if err == nil {
		return
	}
	r.Success = false
	r.Errors = append(r.Errors, err.Error())
	r.codes = append(r.codes, CodeOf(err))
}

// HasErrorCode reports whether an error with code was recorded
func (r *OperationResult) HasErrorCode(code ErrorCode) bool {
	for _, c := range r.codes {
		if c == code {
			return true
		}
	}
	return false
}

// NeedsConfirmation reports whether the caller must confirm and retry
func (r *OperationResult) NeedsConfirmation() bool {
	return len(r.UserConfirmationsRequired) > 0
}
