// Package transaction records undo steps for reversible changes, such as
// the manual marks the conflict ladder applies before re-resolving.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// UndoFunc reverses one applied change
type UndoFunc func(ctx context.Context) error

type step struct {
	name string
	undo UndoFunc
}

// Manager keeps undo steps and replays them last-in first-out
type Manager struct {
	mu     sync.Mutex
	steps  []step
	logger *zerolog.Logger
}

// NewManager creates a transaction manager
func NewManager(logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{steps: make([]step, 0), logger: logger}
}

// Add registers the undo step for a change that has just been applied
func (m *Manager) Add(name string, undo UndoFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{name: name, undo: undo})
}

// Pending lists the names of registered steps in the order they were added
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.steps))
	for _, s := range m.steps {
		names = append(names, s.name)
	}
	return names
}

// Rollback runs every undo step in reverse order. All steps run even when
// some fail; the failures are joined.
func (m *Manager) Rollback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.steps) == 0 {
		return nil
	}

	m.logger.Info().Int("steps", len(m.steps)).Msg("rolling back")

	var errs []error
	for i := len(m.steps) - 1; i >= 0; i-- {
		s := m.steps[i]
		m.logger.Debug().Str("operation", s.name).Msg("rolling back")

		if err := s.undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", s.name, err))
			m.logger.Error().Err(err).Str("operation", s.name).Msg("rollback failed")
		}
	}
	m.steps = nil

	if len(errs) > 0 {
		return fmt.Errorf("rollback completed with errors: %w", errors.Join(errs...))
	}
	return nil
}

// Commit drops the undo steps, keeping the changes
func (m *Manager) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = nil
}
