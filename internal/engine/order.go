package engine

import "github.com/quantmind-br/dpm/internal/core"

// installOrder places every package after the packages it depends on.
// Independent packages keep their input order and cycles are appended as
// they appear.
func installOrder(pkgs []core.Package) []core.Package {
	return topoSort(pkgs, false)
}

// removalOrder places every package before the packages it depends on
func removalOrder(pkgs []core.Package) []core.Package {
	return topoSort(pkgs, true)
}

func topoSort(pkgs []core.Package, dependentsFirst bool) []core.Package {
	index := make(map[string]int, len(pkgs))
	for i, pkg := range pkgs {
		index[pkg.Name] = i
	}

	indegree := make([]int, len(pkgs))
	next := make([][]int, len(pkgs))
	for i, pkg := range pkgs {
		for _, dep := range pkg.Dependencies {
			j, ok := index[dep]
			if !ok || j == i {
				continue
			}
			if dependentsFirst {
				indegree[j]++
				next[i] = append(next[i], j)
			} else {
				indegree[i]++
				next[j] = append(next[j], i)
			}
		}
	}

	placed := make([]bool, len(pkgs))
	out := make([]core.Package, 0, len(pkgs))
	for len(out) < len(pkgs) {
		pick := -1
		for i := range pkgs {
			if !placed[i] && indegree[i] == 0 {
				pick = i
				break
			}
		}
		if pick < 0 {
			// cycle: take the first remaining package
			for i := range pkgs {
				if !placed[i] {
					pick = i
					break
				}
			}
		}

		placed[pick] = true
		out = append(out, pkgs[pick])
		for _, j := range next[pick] {
			indegree[j]--
		}
	}
	return out
}
