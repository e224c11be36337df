package apt

import (
	"testing"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseControl(t *testing.T) {
	out := `Package: acme-tools
Version: 1.2.0
Section: metapackages
Depends: libfoo (>= 1.0), acme-cli
Description: Acme tools
 A longer description
 spanning lines

Package: acme-tools
Version: 1.1.0
`
	fields := parseControl(out)
	assert.Equal(t, "1.2.0", fields["Version"])
	assert.Equal(t, "metapackages", fields["Section"])
	assert.Equal(t, "Acme tools\nA longer description\nspanning lines", fields["Description"])
}

func TestParseRelations(t *testing.T) {
	deps := parseRelations("libc6 (>= 2.34), libfoo [amd64] (<< 2.0) | libbar, python3:any, , libz (> 1)")
	require.Len(t, deps, 4)

	assert.Equal(t, "libc6", deps[0].Name)
	require.NotNil(t, deps[0].Constraint)
	assert.Equal(t, core.OpGreaterEq, deps[0].Constraint.Op)
	assert.Equal(t, "2.34", deps[0].Constraint.Version)

	assert.Equal(t, "libfoo", deps[1].Name)
	require.NotNil(t, deps[1].Constraint)
	assert.Equal(t, core.OpLess, deps[1].Constraint.Op)
	assert.Equal(t, "2.0", deps[1].Constraint.Version)
	require.Len(t, deps[1].Alternatives, 1)
	assert.Equal(t, "libbar", deps[1].Alternatives[0].Name)
	assert.Equal(t, []string{"libfoo", "libbar"}, deps[1].Names())

	assert.Equal(t, "python3", deps[2].Name)
	assert.Nil(t, deps[2].Constraint)

	// legacy single-character operators mean "or equal"
	assert.Equal(t, core.OpGreaterEq, deps[3].Constraint.Op)

	assert.Nil(t, parseRelations("  "))
}

func TestParseRelations_Restrictions(t *testing.T) {
	deps := parseRelations("debhelper-compat (= 13), libcheck <!nocheck>, default-mta | mail-transport-agent (>> 1) [linux-any]")
	require.Len(t, deps, 3)

	assert.Equal(t, "debhelper-compat", deps[0].Name)
	assert.Equal(t, core.OpEqual, deps[0].Constraint.Op)

	assert.Equal(t, "libcheck", deps[1].Name)
	assert.Nil(t, deps[1].Constraint)

	assert.Equal(t, "default-mta", deps[2].Name)
	require.Len(t, deps[2].Alternatives, 1)
	alt := deps[2].Alternatives[0]
	assert.Equal(t, "mail-transport-agent", alt.Name)
	require.NotNil(t, alt.Constraint)
	assert.Equal(t, core.OpGreater, alt.Constraint.Op)
	assert.Equal(t, "1", alt.Constraint.Version)
	assert.Equal(t, "default-mta | mail-transport-agent (>> 1)", deps[2].String())
}

func TestParseReverseProvides(t *testing.T) {
	out := `Package: mail-transport-agent
Versions: 

Reverse Depends: 
  mutt,mail-transport-agent
Dependencies: 
Provides: 
Reverse Provides: 
postfix 3.7.6-0+deb12u1 (= )
exim4-daemon-light 4.96-15
postfix 3.7.5-1
`
	assert.Equal(t, []string{"postfix", "exim4-daemon-light"}, parseReverseProvides(out))
	assert.Empty(t, parseReverseProvides("Package: libfoo\nReverse Provides: \n"))
}

func TestParsePolicy(t *testing.T) {
	out := `acme-tools:
  Installed: (none)
  Candidate: 1.2.0
  Version table:
     1.2.0 500
`
	installed, candidate := parsePolicy(out)
	assert.Empty(t, installed)
	assert.Equal(t, "1.2.0", candidate)
}

func TestParseMadison(t *testing.T) {
	out := ` libfoo |    1.4.0 | http://deb.example.org stable/main amd64 Packages
 libfoo |    1.4.0 | http://deb.example.org stable/main Sources
 libfoo |    1.2.0 | http://deb.example.org oldstable/main amd64 Packages
`
	assert.Equal(t, []string{"1.4.0", "1.2.0"}, parseMadison(out))
}

func TestParseRdepends(t *testing.T) {
	out := `libfoo
Reverse Depends:
  acme-tools
 |alt-tools
  libfoo
  acme-tools
  acme-extra
`
	assert.Equal(t, []string{"acme-tools", "acme-extra"}, parseRdepends(out, "libfoo"))
}

func TestParseStatus(t *testing.T) {
	out := "ii \tbash\t5.2-1\niU \tacme-cli:amd64\t1.0\nrc \told-pkg\t0.9\niiR\treinst\t1.0\nbogus\n"
	rows := parseStatus(out)
	require.Len(t, rows, 4)

	assert.Equal(t, "acme-cli", rows[1].name)

	assert.True(t, rows[0].installed())
	assert.False(t, rows[0].broken())
	assert.True(t, rows[1].broken())
	assert.False(t, rows[2].installed())
	assert.True(t, rows[3].broken())
}

func TestParseSimulation(t *testing.T) {
	out := `NOTE: This is only a simulation!
Inst libfoo (1.4.0 stable [amd64])
Inst acme-tools (1.2.0 stable [amd64])
Remv old-foo [0.9]
Purg cfg-foo [0.1]
Conf libfoo (1.4.0 stable [amd64])
`
	installs, removals := parseSimulation(out)
	assert.Equal(t, []string{"libfoo", "acme-tools"}, installs)
	assert.Equal(t, []string{"old-foo", "cfg-foo"}, removals)
}

func TestParseSizeKB(t *testing.T) {
	assert.Equal(t, 12, parseSizeKB(" 12 "))
	assert.Equal(t, -1, parseSizeKB(""))
}
