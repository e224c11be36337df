package apt

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
)

// parseControl reads the first stanza of apt-cache show output into a
// field map, folding continuation lines
func parseControl(out string) map[string]string {
	fields := make(map[string]string)
	var last string

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(fields) > 0 {
				break
			}
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if last != "" {
				fields[last] += "\n" + strings.TrimSpace(line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		last = strings.TrimSpace(key)
		fields[last] = strings.TrimSpace(value)
	}
	return fields
}

// parseRelations parses a Depends-style field. The first option of an
// "a | b" group becomes the dependency, the rest its alternatives.
func parseRelations(field string) []core.Dependency {
	if strings.TrimSpace(field) == "" {
		return nil
	}

	var deps []core.Dependency
	for _, group := range strings.Split(field, ",") {
		var opts []core.Dependency
		for _, alt := range strings.Split(group, "|") {
			if dep, ok := parseRelation(alt); ok {
				opts = append(opts, dep)
			}
		}
		if len(opts) == 0 {
			continue
		}
		dep := opts[0]
		dep.Alternatives = opts[1:]
		if len(dep.Alternatives) == 0 {
			dep.Alternatives = nil
		}
		deps = append(deps, dep)
	}
	return deps
}

// parseRelation reads one "name[:arch] [(op version)] [[archs]]" option
func parseRelation(alt string) (core.Dependency, bool) {
	alt = strings.TrimSpace(alt)
	if alt == "" {
		return core.Dependency{}, false
	}

	// drop architecture and build-profile restrictions
	if i := strings.Index(alt, "["); i >= 0 {
		if j := strings.Index(alt[i:], "]"); j >= 0 {
			alt = strings.TrimSpace(alt[:i] + alt[i+j+1:])
		}
	}
	from := 0
	if k := strings.Index(alt, ")"); k >= 0 {
		from = k + 1
	}
	if i := strings.Index(alt[from:], "<"); i >= 0 {
		i += from
		if j := strings.Index(alt[i:], ">"); j >= 0 {
			alt = strings.TrimSpace(alt[:i] + alt[i+j+1:])
		}
	}

	dep := core.Dependency{}
	name := alt
	if i := strings.Index(alt, "("); i >= 0 {
		name = strings.TrimSpace(alt[:i])
		rel := alt[i+1:]
		if j := strings.Index(rel, ")"); j >= 0 {
			rel = rel[:j]
		}
		dep.Constraint = parseConstraint(rel)
	}
	name, _, _ = strings.Cut(name, ":")
	dep.Name = strings.TrimSpace(name)
	return dep, dep.Name != ""
}

func parseConstraint(rel string) *core.Constraint {
	rel = strings.TrimSuffix(strings.TrimSpace(rel), ")")
	for _, op := range []core.ConstraintOp{core.OpLessEq, core.OpGreaterEq, core.OpLess, core.OpGreater, core.OpEqual, "<", ">"} {
		if strings.HasPrefix(rel, string(op)) {
			version := strings.TrimSpace(strings.TrimPrefix(rel, string(op)))
			if version == "" {
				return nil
			}
			switch op {
			case "<":
				op = core.OpLessEq
			case ">":
				op = core.OpGreaterEq
			}
			return &core.Constraint{Op: op, Version: version}
		}
	}
	return nil
}

// parsePolicy extracts the Installed and Candidate lines of apt-cache policy
func parsePolicy(out string) (installed, candidate string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Installed:"):
			installed = normalizeNone(strings.TrimSpace(strings.TrimPrefix(line, "Installed:")))
		case strings.HasPrefix(line, "Candidate:"):
			candidate = normalizeNone(strings.TrimSpace(strings.TrimPrefix(line, "Candidate:")))
		}
	}
	return installed, candidate
}

func normalizeNone(v string) string {
	if v == "(none)" {
		return ""
	}
	return v
}

// parseMadison reads "name | version | source" lines
func parseMadison(out string) []string {
	seen := make(map[string]bool)
	var versions []string
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		v := strings.TrimSpace(parts[1])
		if v != "" && !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}
	return versions
}

// parseRdepends reads apt-cache rdepends output. Alternatives (lines
// prefixed with '|') are skipped since another provider may satisfy them.
func parseRdepends(out, self string) []string {
	seen := make(map[string]bool)
	var names []string
	inList := false
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Reverse Depends:") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		name := strings.TrimSpace(line)
		if name == "" || strings.HasPrefix(name, "|") {
			continue
		}
		if name != self && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// parseReverseProvides reads the "Reverse Provides:" section of apt-cache
// showpkg, one "name version" line per provider
func parseReverseProvides(out string) []string {
	seen := make(map[string]bool)
	var names []string
	inList := false
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Reverse Provides:") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		if trimmed == "" || strings.HasSuffix(trimmed, ":") {
			break
		}
		name, _, _ := strings.Cut(trimmed, " ")
		name, _, _ = strings.Cut(name, ":")
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// statusLine is one row of dpkg-query -W output
type statusLine struct {
	abbrev  string
	name    string
	version string
}

// parseStatus reads "${db:Status-Abbrev}\t${Package}\t${Version}" rows
func parseStatus(out string) []statusLine {
	var rows []statusLine
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimSpace(parts[1]), ":")
		rows = append(rows, statusLine{
			abbrev:  parts[0],
			name:    name,
			version: strings.TrimSpace(parts[2]),
		})
	}
	return rows
}

// installed reports whether the status occupies the system
func (s statusLine) installed() bool {
	if len(s.abbrev) < 2 {
		return false
	}
	return s.abbrev[1] != 'n' && s.abbrev[1] != 'c'
}

// broken reports half-installed, unpacked, failed or reinst-required states
func (s statusLine) broken() bool {
	if len(s.abbrev) >= 2 && strings.ContainsRune("UFHWt", rune(s.abbrev[1])) {
		return true
	}
	return len(s.abbrev) >= 3 && s.abbrev[2] == 'R'
}

// parseSimulation reads apt-get -s output ("Inst x", "Remv y", "Purg z")
func parseSimulation(out string) (installs, removals []string) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "Inst":
			installs = append(installs, fields[1])
		case "Remv", "Purg":
			removals = append(removals, fields[1])
		}
	}
	return installs, removals
}

func parseSizeKB(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return -1
	}
	return n
}
