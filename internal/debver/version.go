// Package debver orders Debian versions and evaluates relationship
// constraints on top of go-deb-version.
package debver

import (
	"fmt"
	"strings"

	deb "github.com/knqyf263/go-deb-version"
	"github.com/quantmind-br/dpm/internal/core"
)

// Parse validates s as an [epoch:]upstream[-revision] version
func Parse(s string) (deb.Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return deb.Version{}, fmt.Errorf("empty version")
	}
	v, err := deb.NewVersion(s)
	if err != nil {
		return deb.Version{}, fmt.Errorf("parse version %q: %w", s, err)
	}
	return v, nil
}

// Compare orders two version strings and returns -1, 0 or 1. Unparseable
// input falls back to a plain string comparison so sorting never fails.
func Compare(a, b string) int {
	va, errA := Parse(a)
	vb, errB := Parse(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	switch c := va.Compare(vb); {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

// Satisfies reports whether version meets the relation op target
func Satisfies(version string, op core.ConstraintOp, target string) bool {
	c := Compare(version, target)
	switch op {
	case core.OpLess, "<":
		return c < 0
	case core.OpLessEq:
		return c <= 0
	case core.OpEqual:
		return c == 0
	case core.OpGreaterEq:
		return c >= 0
	case core.OpGreater, ">":
		return c > 0
	default:
		return false
	}
}

// SatisfiesConstraint is Satisfies for an optional constraint
func SatisfiesConstraint(version string, c *core.Constraint) bool {
	if c == nil {
		return true
	}
	return Satisfies(version, c.Op, c.Version)
}

// Latest returns the highest version in vs, or "" when empty
func Latest(vs []string) string {
	best := ""
	for _, v := range vs {
		if best == "" || Compare(v, best) > 0 {
			best = v
		}
	}
	return best
}
