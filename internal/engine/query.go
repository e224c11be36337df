package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/security"
)

// PackageInfo is the report behind "dpm info"
type PackageInfo struct {
	Package             core.Package     `json:"package" yaml:"package"`
	Type                core.PackageType `json:"type" yaml:"type"`
	Risk                core.RiskLevel   `json:"removal_risk" yaml:"removal_risk"`
	Protected           bool             `json:"protected" yaml:"protected"`
	Removable           bool             `json:"removable" yaml:"removable"`
	PinnedVersion       string           `json:"pinned_version,omitempty" yaml:"pinned_version,omitempty"`
	AvailableVersions   []string         `json:"available_versions,omitempty" yaml:"available_versions,omitempty"`
	ReverseDependencies []string         `json:"reverse_dependencies,omitempty" yaml:"reverse_dependencies,omitempty"`
}

// Info describes one package with its classification
func (e *Engine) Info(ctx context.Context, name string) (*PackageInfo, error) {
	if err := security.ValidatePackageName(name); err != nil {
		return nil, err
	}

	pkg, err := e.backend.Query(ctx, name)
	if err != nil {
		return nil, err
	}
	pkg = e.classifier.Annotate(pkg)
	snap := e.modes.State().Snapshot()

	info := &PackageInfo{
		Package:   pkg,
		Type:      e.classifier.Type(pkg),
		Risk:      e.classifier.RemovalRisk(pkg),
		Protected: e.classifier.IsProtected(name) || snap.IsProtected(name),
		Removable: e.classifier.IsRemovable(name),
	}
	if info.Protected {
		info.Risk = core.RiskHigh
	}
	if v, ok := snap.PinnedVersion(name); ok {
		info.PinnedVersion = v
	}

	if versions, err := e.backend.AvailableVersions(ctx, name); err == nil {
		info.AvailableVersions = versions
	} else {
		e.log.Debug().Err(err).Str("package", name).Msg("listing versions failed")
	}

	if pkg.IsInstalled() {
		rdeps, err := e.backend.ReverseDependencies(ctx, name)
		if err != nil {
			return nil, err
		}
		info.ReverseDependencies = core.Names(rdeps)
	}
	return info, nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Type    core.PackageType
	Pattern string
}

// ListResult holds installed packages and a per-type count
type ListResult struct {
	Packages []core.Package           `json:"packages" yaml:"packages"`
	Counts   map[core.PackageType]int `json:"counts" yaml:"counts"`
}

// List returns installed packages matching filter, sorted by name
func (e *Engine) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	installed, err := e.backend.ListInstalled(ctx)
	if err != nil {
		return nil, core.WrapError(err, core.CodeBackendFailure, "list installed packages")
	}

	out := &ListResult{Counts: make(map[core.PackageType]int)}
	for _, pkg := range installed {
		pkg = e.classifier.Annotate(pkg)
		typ := e.classifier.Type(pkg)
		if filter.Type != "" && typ != filter.Type {
			continue
		}
		if filter.Pattern != "" && !fuzzy.MatchNormalizedFold(filter.Pattern, pkg.Name) {
			continue
		}
		out.Counts[typ]++
		out.Packages = append(out.Packages, pkg)
	}
	sort.Slice(out.Packages, func(i, j int) bool { return out.Packages[i].Name < out.Packages[j].Name })
	return out, nil
}

// maxSuggestions caps "did you mean" hints
const maxSuggestions = 5

// Suggest returns installed package names close to name
func (e *Engine) Suggest(ctx context.Context, name string) []string {
	return e.suggest(ctx, name)
}

func (e *Engine) suggest(ctx context.Context, name string) []string {
	installed, err := e.backend.ListInstalled(ctx)
	if err != nil {
		return nil
	}

	type hint struct {
		name     string
		distance int
	}
	maxDistance := max(1, len(name)/3)
	var hints []hint
	for _, pkg := range installed {
		if pkg.Name == name {
			continue
		}
		distance := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(pkg.Name))
		if distance <= maxDistance || fuzzy.MatchNormalizedFold(name, pkg.Name) || fuzzy.MatchNormalizedFold(pkg.Name, name) {
			hints = append(hints, hint{name: pkg.Name, distance: distance})
		}
	}

	sort.Slice(hints, func(i, j int) bool {
		if hints[i].distance != hints[j].distance {
			return hints[i].distance < hints[j].distance
		}
		return hints[i].name < hints[j].name
	})

	out := make([]string, 0, maxSuggestions)
	for _, h := range hints {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, h.name)
	}
	return out
}
