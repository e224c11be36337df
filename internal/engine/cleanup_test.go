package engine

import (
	"context"
	"testing"

	"github.com/quantmind-br/dpm/internal/classifier"
	"github.com/quantmind-br/dpm/internal/conflict"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/mode"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/quantmind-br/dpm/internal/syspkg/memory"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cacheDir = "/var/cache/apt/archives"

// cachingBackend deletes archives on CleanCache the way apt-get clean does
type cachingBackend struct {
	*memory.Backend
	fs afero.Fs
}

func (b *cachingBackend) CleanCache(ctx context.Context, aggressive bool) error {
	if err := b.Backend.CleanCache(ctx, aggressive); err != nil {
		return err
	}
	return b.fs.RemoveAll(cacheDir + "/old_1.0_amd64.deb")
}

// cacheless hides the memory backend's CacheCleaner
type cacheless struct {
	syspkg.Backend
}

func newCleanupEngine(b syspkg.Backend, fs afero.Fs, repos ...string) *Engine {
	policy := classifier.New([]string{"acme-"}, nil, nil)
	res := resolver.New(b, policy, resolver.Options{}, nil)
	return New(Options{
		Backend:      b,
		Classifier:   policy,
		Modes:        mode.NewManager(mode.NewState(false, nil, nil), mode.Options{}),
		Resolver:     res,
		Handler:      conflict.New(res, b, policy, defaultConfig, nil),
		Fs:           fs,
		AptCacheDir:  cacheDir,
		OfflineRepos: repos,
	})
}

func orphanBackend() *memory.Backend {
	b := acmeBackend()
	b.Add(memory.Entry{Name: "libold", Installed: "1.0", Versions: []string{"1.0"}, Auto: true, Depends: []core.Dependency{memory.Dep("libold-data")}})
	b.Add(memory.Entry{Name: "libold-data", Installed: "1.0", Versions: []string{"1.0"}, Auto: true})
	return b
}

func TestCleanup_NothingSelected(t *testing.T) {
	e := newCleanupEngine(acmeBackend(), afero.NewMemMapFs())

	res, err := e.Cleanup(context.Background(), CleanupRequest{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.HasErrorCode(core.CodeInvalidInput))
}

func TestCleanup_OrphansNeedConfirmation(t *testing.T) {
	ctx := context.Background()
	b := orphanBackend()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, cacheDir+"/old_1.0_amd64.deb", make([]byte, 4096), 0o644))
	e := newCleanupEngine(&cachingBackend{Backend: b, fs: fs}, fs)

	res, err := e.Cleanup(ctx, CleanupRequest{Orphans: true, AptCache: true})
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.True(t, res.NeedsConfirmation())
	assert.Equal(t, "cleanup", res.UserConfirmationsRequired[0].ID)
	assert.Contains(t, res.UserConfirmationsRequired[0].Items, "remove libold (auto-removable)")
	assert.Empty(t, b.Calls(), "the cache waits for the confirmation too")

	res, err = e.Cleanup(ctx, CleanupRequest{Orphans: true, AptCache: true, Confirmed: true})
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, conflict.StrategyConfirmed, res.Strategy)
	assert.Equal(t, []string{"remove libold", "remove libold-data", "autoclean"}, b.Calls())
	assert.Equal(t, int64(4096), res.FreedBytes)
	assert.Equal(t, []string{cacheDir}, res.CleanedPaths)
}

func TestCleanup_NoOrphans(t *testing.T) {
	e := newCleanupEngine(acmeBackend(), afero.NewMemMapFs())

	res, err := e.Cleanup(context.Background(), CleanupRequest{Orphans: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Warnings, "no orphaned packages")
}

func TestCleanup_CacheFailure(t *testing.T) {
	b := acmeBackend()
	b.FailOn("clean", "", assert.AnError)
	e := newCleanupEngine(b, afero.NewMemMapFs())

	res, err := e.Cleanup(context.Background(), CleanupRequest{AptCache: true, Aggressive: true})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"clean"}, b.Calls())

	e = newCleanupEngine(cacheless{acmeBackend()}, afero.NewMemMapFs())
	res, err = e.Cleanup(context.Background(), CleanupRequest{AptCache: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Warnings, "the memory backend keeps no package cache")
}

func TestCleanup_OfflineRepos(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]int{
		"/repo/pool/acme-tools_1.0_amd64.deb":      10,
		"/repo/pool/acme-tools_1%3a0.9_amd64.deb":  20,
		"/repo/pool/acme-tools_1.10_amd64.deb":     30,
		"/repo/pool/libfoo_2.0-1_all.deb":          40,
		"/repo/pool/.#libfoo_2.0-1_all.deb":        5,
		"/repo/pool/sub/libfoo_1.0-1_all.deb":      50,
		"/repo/Packages.partial":                   7,
		"/repo/README":                             9,
		"/other/acme-tools_1.0_amd64.deb":          60,
		"/other/acme-tools_1.0~rc1_amd64.deb":      70,
		"/other/acme-tools_1.0~rc1_amd64.deb.temp": 1,
	}
	for path, size := range files {
		require.NoError(t, afero.WriteFile(fs, path, make([]byte, size), 0o644))
	}

	e := newCleanupEngine(acmeBackend(), fs, "/repo", "/other", "/absent")
	res, err := e.Cleanup(context.Background(), CleanupRequest{OfflineRepos: true})
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %v", res.Errors)

	// the epoch makes 1:0.9 the newest acme-tools in the pool
	assert.ElementsMatch(t, []string{
		"/repo/Packages.partial",
		"/repo/pool/.#libfoo_2.0-1_all.deb",
		"/repo/pool/acme-tools_1.0_amd64.deb",
		"/repo/pool/acme-tools_1.10_amd64.deb",
		"/other/acme-tools_1.0~rc1_amd64.deb",
		"/other/acme-tools_1.0~rc1_amd64.deb.temp",
	}, res.CleanedPaths)
	assert.Equal(t, int64(7+5+10+30+70+1), res.FreedBytes)

	for _, kept := range []string{
		"/repo/pool/acme-tools_1%3a0.9_amd64.deb",
		"/repo/pool/libfoo_2.0-1_all.deb",
		"/repo/pool/sub/libfoo_1.0-1_all.deb",
		"/repo/README",
		"/other/acme-tools_1.0_amd64.deb",
	} {
		ok, _ := afero.Exists(fs, kept)
		assert.True(t, ok, kept)
	}
}

func TestParseArchiveName(t *testing.T) {
	tests := []struct {
		base                string
		name, version, arch string
		ok                  bool
	}{
		{"acme-tools_1.2.0-1_amd64.deb", "acme-tools", "1.2.0-1", "amd64", true},
		{"libfoo_2%3a1.0_all.deb", "libfoo", "2:1.0", "all", true},
		{"libfoo_1.0.deb", "", "", "", false},
		{"libfoo_1.0_amd64.udeb", "", "", "", false},
		{"_1.0_amd64.deb", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			name, version, arch, ok := parseArchiveName(tt.base)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.arch, arch)
		})
	}
}
