package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/debver"
	"github.com/quantmind-br/dpm/internal/fsops"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/spf13/afero"
)

// DefaultAptCacheDir is where apt keeps downloaded archives
const DefaultAptCacheDir = "/var/cache/apt/archives"

// DefaultOfflineRepos are the local repositories offline mode installs from
var DefaultOfflineRepos = []string{"/usr/local/share/offline-packages", "/opt/offline-repo"}

// CleanupRequest selects what Cleanup reclaims. Orphan removal follows
// the same confirmation protocol as remove.
type CleanupRequest struct {
	AptCache     bool
	Aggressive   bool
	OfflineRepos bool
	Orphans      bool
	Confirmed    bool
}

// Empty reports a request that selects nothing
func (r CleanupRequest) Empty() bool {
	return !r.AptCache && !r.OfflineRepos && !r.Orphans
}

// Cleanup removes orphaned packages and reclaims disk space. When the
// orphan plan needs confirmation nothing at all is cleaned yet.
func (e *Engine) Cleanup(ctx context.Context, req CleanupRequest) (*core.OperationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := core.NewResult(core.OperationCleanup, "")
	res.StartedAt = e.now()
	defer e.finish(ctx, res, "")

	if req.Empty() {
		res.AddError(core.NewError(core.CodeInvalidInput, "nothing selected to clean up"))
		return res, nil
	}

	if req.Orphans {
		snap := e.snapshot(ctx, nil, res)
		if _, err := e.run(ctx, res, resolver.Request{
			Operation: core.OperationCleanup,
			Mode:      snap,
		}, req.Confirmed, req.Confirmed); err != nil {
			return res, err
		}
		if res.NeedsConfirmation() || len(res.Errors) > 0 {
			res.Success = false
			return res, nil
		}
	}

	if req.AptCache {
		e.cleanAptCache(ctx, res, req.Aggressive)
	}
	if req.OfflineRepos {
		e.cleanOfflineRepos(res)
	}

	res.Success = len(res.Errors) == 0
	e.log.Info().
		Int64("freed_bytes", res.FreedBytes).
		Int("paths", len(res.CleanedPaths)).
		Int("packages", len(res.PackagesAffected)).
		Msg("cleanup finished")
	return res, nil
}

func (e *Engine) cleanAptCache(ctx context.Context, res *core.OperationResult, aggressive bool) {
	cleaner, ok := e.backend.(syspkg.CacheCleaner)
	if !ok {
		res.AddWarning("the %s backend keeps no package cache", e.backend.Name())
		return
	}

	dir := e.aptCacheDir
	if dir == "" {
		dir = DefaultAptCacheDir
	}
	before, err := fsops.DirSize(e.fs, dir)
	if err != nil {
		e.log.Debug().Err(err).Str("path", dir).Msg("cannot size package cache")
	}

	if err := cleaner.CleanCache(ctx, aggressive); err != nil {
		res.AddError(err)
		return
	}

	after, err := fsops.DirSize(e.fs, dir)
	if err != nil {
		e.log.Debug().Err(err).Str("path", dir).Msg("cannot size package cache")
	}
	if freed := before - after; freed > 0 {
		res.FreedBytes += freed
	}
	res.CleanedPaths = append(res.CleanedPaths, dir)
}

// cleanOfflineRepos deletes leftover temporary files and every .deb that a
// newer version of the same package and architecture supersedes
func (e *Engine) cleanOfflineRepos(res *core.OperationResult) {
	for _, dir := range e.offlineRepos {
		if ok, _ := afero.DirExists(e.fs, dir); !ok {
			e.log.Debug().Str("path", dir).Msg("offline repository not present")
			continue
		}

		stale, err := staleRepoFiles(e.fs, dir)
		if err != nil {
			res.AddError(core.WrapErrorf(err, core.CodeBackendFailure, "scan offline repository %s", dir))
			continue
		}
		for _, path := range stale {
			info, err := e.fs.Stat(path)
			if err != nil {
				continue
			}
			if err := e.fs.Remove(path); err != nil {
				res.AddError(core.WrapErrorf(err, core.CodeBackendFailure, "remove %s", path))
				continue
			}
			res.FreedBytes += info.Size()
			res.CleanedPaths = append(res.CleanedPaths, path)
		}
	}
}

type repoArchive struct {
	path    string
	version string
}

func staleRepoFiles(fs afero.Fs, dir string) ([]string, error) {
	var stale []string
	latest := make(map[string]repoArchive)

	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		base := filepath.Base(path)
		if isTempFile(base) {
			stale = append(stale, path)
			return nil
		}

		name, version, arch, ok := parseArchiveName(base)
		if !ok {
			return nil
		}
		key := filepath.Join(filepath.Dir(path), name+"_"+arch)
		prev, seen := latest[key]
		switch {
		case !seen:
			latest[key] = repoArchive{path: path, version: version}
		case debver.Compare(version, prev.version) > 0:
			stale = append(stale, prev.path)
			latest[key] = repoArchive{path: path, version: version}
		default:
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(stale)
	return stale, nil
}

func isTempFile(base string) bool {
	if strings.HasPrefix(base, ".#") {
		return true
	}
	for _, ext := range []string{".tmp", ".temp", ".partial"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// parseArchiveName splits name_version_arch.deb. Epochs are stored as %3a.
func parseArchiveName(base string) (name, version, arch string, ok bool) {
	stem, found := strings.CutSuffix(base, ".deb")
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(stem, "_")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], strings.ReplaceAll(parts[1], "%3a", ":"), parts[2], true
}
