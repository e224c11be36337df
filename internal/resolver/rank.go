package resolver

import (
	"fmt"
	"sort"
)

// Tie-break criteria for choosing among removal candidates
const (
	TieBreakRemovableList          = "removable_list"
	TieBreakNotRequiredByProtected = "not_required_by_protected"
)

// DefaultTieBreak prefers packages on the removable list, then packages no
// protected package depends on
var DefaultTieBreak = []string{TieBreakRemovableList, TieBreakNotRequiredByProtected}

// ValidateTieBreak rejects unknown or repeated criteria
func ValidateTieBreak(order []string) error {
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		switch key {
		case TieBreakRemovableList, TieBreakNotRequiredByProtected:
		default:
			return fmt.Errorf("unknown tie-break %q", key)
		}
		if seen[key] {
			return fmt.Errorf("tie-break %q listed twice", key)
		}
		seen[key] = true
	}
	return nil
}

// Candidate is a package that could be removed, with the facts the
// ranking looks at
type Candidate struct {
	Name                string
	Custom              bool
	Removable           bool
	RequiredByProtected bool
}

// RankRemovals orders candidates from most to least preferred for removal:
// custom packages first, then the tie-break criteria in order, then name.
// The input slice is left untouched.
func RankRemovals(cands []Candidate, tieBreak []string) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Custom != b.Custom {
			return a.Custom
		}
		for _, key := range tieBreak {
			switch key {
			case TieBreakRemovableList:
				if a.Removable != b.Removable {
					return a.Removable
				}
			case TieBreakNotRequiredByProtected:
				if a.RequiredByProtected != b.RequiredByProtected {
					return !a.RequiredByProtected
				}
			}
		}
		return a.Name < b.Name
	})
	return out
}
