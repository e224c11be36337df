package mode

import (
	"maps"
	"sync"

	"github.com/quantmind-br/dpm/internal/core"
)

// State holds the offline flag, pinned versions and protected names.
// Only Manager writes to it; everyone else reads snapshots.
type State struct {
	mu        sync.RWMutex
	offline   bool
	pinned    map[string]string
	protected map[string]struct{}
}

// NewState creates the mode state loaded from configuration
func NewState(offline bool, pinned map[string]string, protected []string) *State {
	s := &State{
		offline:   offline,
		pinned:    maps.Clone(pinned),
		protected: make(map[string]struct{}, len(protected)),
	}
	if s.pinned == nil {
		s.pinned = make(map[string]string)
	}
	for _, name := range protected {
		s.protected[name] = struct{}{}
	}
	return s
}

// Snapshot returns an immutable copy of the state
func (s *State) Snapshot() core.ModeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.ModeSnapshot{
		Offline:   s.offline,
		Pinned:    maps.Clone(s.pinned),
		Protected: maps.Clone(s.protected),
	}
}

// Offline reports the stored flag
func (s *State) Offline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offline
}

// Pins returns a copy of the pinned-version table
func (s *State) Pins() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.pinned)
}

func (s *State) setOffline(offline bool) {
	s.mu.Lock()
	s.offline = offline
	s.mu.Unlock()
}
