package resolver

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/quantmind-br/dpm/internal/logging"
	"github.com/quantmind-br/dpm/internal/syspkg/apt"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aptSystem drives the real apt backend from canned command output.
// Commands without a canned answer print nothing.
func aptSystem(responses map[string]string) *apt.Backend {
	respond := func(_ context.Context, name string, args ...string) (string, error) {
		return responses[strings.Join(append([]string{name}, args...), " ")], nil
	}
	runner := &helpers.MockCommandRunner{RunCommandFunc: respond, RunPrivilegedFunc: respond}
	return apt.New(runner, afero.NewMemMapFs(), logging.NewTestLogger(io.Discard))
}

func policyOut(name, installed, candidate string) string {
	return name + ":\n  Installed: " + installed + "\n  Candidate: " + candidate + "\n"
}

func TestResolveApt_OneSidedConflict(t *testing.T) {
	ctx := context.Background()
	// only the installed package declares the conflict, so it shows up in
	// the install simulation and nowhere else
	responses := map[string]string{
		"apt-cache policy newmta":                 policyOut("newmta", "(none)", "1.0"),
		"apt-cache show --no-all-versions newmta": "Package: newmta\nVersion: 1.0\n",
		"apt-cache policy oldmta":                 policyOut("oldmta", "2.0", "2.0"),
		"apt-cache show --no-all-versions oldmta": "Package: oldmta\nVersion: 2.0\nConflicts: newmta\n",
		"apt-get -s install newmta=1.0":           "Remv oldmta [2.0]\nInst newmta (1.0 stable [amd64])\nConf newmta (1.0 stable [amd64])\n",
	}

	t.Run("removal joins the plan and needs confirmation", func(t *testing.T) {
		plan, err := newTestResolver(aptSystem(responses)).Resolve(ctx, Request{Name: "newmta", Operation: core.OperationInstall, Mode: online()})
		require.NoError(t, err)
		assert.Equal(t, []string{"newmta"}, core.Names(plan.ToInstall))
		assert.Equal(t, []string{"oldmta"}, core.Names(plan.ToRemove))
		assert.Equal(t, core.RemovalConflict, plan.Reasons["oldmta"])
		assert.True(t, plan.RequiresUserConfirmation)
		require.Len(t, plan.Conflicts, 1)
		assert.Equal(t, "oldmta", plan.Conflicts[0].Removal)
	})

	t.Run("protected package blocks", func(t *testing.T) {
		plan, err := newTestResolver(aptSystem(responses), "oldmta").Resolve(ctx, Request{Name: "newmta", Operation: core.OperationInstall, Mode: online()})
		require.Error(t, err)
		assert.True(t, core.IsCode(err, core.CodeUnsatisfiableDependency))
		assert.Empty(t, plan.ToRemove)
		assert.Contains(t, plan.Blockers[0], "protected package oldmta")
	})

	t.Run("no new removals blocks", func(t *testing.T) {
		_, err := newTestResolver(aptSystem(responses)).Resolve(ctx, Request{Name: "newmta", Operation: core.OperationInstall, Mode: online(), NoNewRemovals: true})
		assert.True(t, core.IsCode(err, core.CodeUnsatisfiableDependency))
	})
}

func TestResolveApt_VersionedBreaks(t *testing.T) {
	ctx := context.Background()
	responses := func(pluginVersion string) map[string]string {
		return map[string]string{
			"apt-cache policy acme-app":                 policyOut("acme-app", "(none)", "2.1"),
			"apt-cache show --no-all-versions acme-app": "Package: acme-app\nVersion: 2.1\nBreaks: plugin-x (<< 2.0)\n",
			"apt-cache policy plugin-x":                 policyOut("plugin-x", pluginVersion, pluginVersion),
			"apt-cache show --no-all-versions plugin-x": "Package: plugin-x\nVersion: " + pluginVersion + "\n",
		}
	}

	plan, err := newTestResolver(aptSystem(responses("2.3"))).Resolve(ctx, Request{Name: "acme-app", Operation: core.OperationInstall, Mode: online()})
	require.NoError(t, err)
	assert.Empty(t, plan.ToRemove, "plugin-x 2.3 is outside << 2.0")
	assert.Empty(t, plan.Conflicts)
	assert.False(t, plan.RequiresUserConfirmation)

	plan, err = newTestResolver(aptSystem(responses("1.4"))).Resolve(ctx, Request{Name: "acme-app", Operation: core.OperationInstall, Mode: online()})
	require.NoError(t, err)
	assert.Equal(t, []string{"plugin-x"}, core.Names(plan.ToRemove))
	assert.True(t, plan.RequiresUserConfirmation)
}

func TestResolveApt_VirtualDependency(t *testing.T) {
	ctx := context.Background()
	showpkg := "Package: mail-transport-agent\nVersions: \n\nReverse Depends: \n  mutt,mail-transport-agent\n" +
		"Dependencies: \nProvides: \nReverse Provides: \npostfix 3.7.6-1 (= )\nexim4-daemon-light 4.96-1 (= )\n"
	base := map[string]string{
		"apt-cache policy mutt":                    policyOut("mutt", "(none)", "2.2"),
		"apt-cache show --no-all-versions mutt":    "Package: mutt\nVersion: 2.2\nDepends: libc6, default-mta | mail-transport-agent\n",
		"apt-cache policy libc6":                   policyOut("libc6", "2.36", "2.36"),
		"apt-cache policy mail-transport-agent":    policyOut("mail-transport-agent", "(none)", "(none)"),
		"apt-cache showpkg mail-transport-agent":   showpkg,
		"apt-cache policy exim4-daemon-light":      policyOut("exim4-daemon-light", "(none)", "4.96-1"),
		"apt-cache show --no-all-versions postfix": "Package: postfix\nVersion: 3.7.6-1\nProvides: mail-transport-agent\n",
	}

	t.Run("installed provider satisfies the relation", func(t *testing.T) {
		responses := map[string]string{"apt-cache policy postfix": policyOut("postfix", "3.7.6-1", "3.7.6-1")}
		for k, v := range base {
			responses[k] = v
		}
		plan, err := newTestResolver(aptSystem(responses)).Resolve(ctx, Request{Name: "mutt", Operation: core.OperationInstall, Mode: online()})
		require.NoError(t, err)
		assert.Equal(t, []string{"mutt"}, core.Names(plan.ToInstall))
		assert.Empty(t, plan.Blockers)
	})

	t.Run("first installable provider is pulled in", func(t *testing.T) {
		responses := map[string]string{"apt-cache policy postfix": policyOut("postfix", "(none)", "3.7.6-1")}
		for k, v := range base {
			responses[k] = v
		}
		plan, err := newTestResolver(aptSystem(responses)).Resolve(ctx, Request{Name: "mutt", Operation: core.OperationInstall, Mode: online()})
		require.NoError(t, err)
		assert.Equal(t, []string{"mutt", "postfix"}, core.Names(plan.ToInstall))
	})
}

func TestResolveApt_Cleanup(t *testing.T) {
	b := aptSystem(map[string]string{
		"apt-get -s autoremove":                    "Remv libold1 [1.0-2]\n",
		"apt-cache policy libold1":                 policyOut("libold1", "1.0-2", "1.0-2"),
		"apt-cache show --no-all-versions libold1": "Package: libold1\nVersion: 1.0-2\nDepends: libold-data (= 1.0-2)\n",
		"apt-cache policy libold-data":             policyOut("libold-data", "1.0-2", "1.0-2"),
		"apt-mark showauto libold-data":            "libold-data\n",
		"apt-cache rdepends --installed --no-recommends --no-suggests --no-conflicts --no-breaks --no-replaces --no-enhances libold-data": "libold-data\nReverse Depends:\n  libold1\n",
	})

	plan, err := newTestResolver(b).Resolve(context.Background(), Request{Operation: core.OperationCleanup, Mode: online()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"libold1", "libold-data"}, core.Names(plan.ToRemove))
	assert.True(t, plan.RequiresUserConfirmation)
}
