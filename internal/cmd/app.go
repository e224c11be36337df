package cmd

import (
	"context"
	"path/filepath"

	"github.com/quantmind-br/dpm/internal/classifier"
	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/conflict"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/db"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/quantmind-br/dpm/internal/fsops"
	"github.com/quantmind-br/dpm/internal/helpers"
	"github.com/quantmind-br/dpm/internal/logging"
	"github.com/quantmind-br/dpm/internal/mode"
	"github.com/quantmind-br/dpm/internal/resolver"
	"github.com/quantmind-br/dpm/internal/syspkg"
	"github.com/quantmind-br/dpm/internal/syspkg/apt"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// App bundles everything a command needs
type App struct {
	Engine     *engine.Engine
	Modes      *mode.Manager
	Classifier *classifier.Classifier
	// Journal is nil when the history database could not be opened
	Journal *db.DB
}

// Close releases the journal
func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Close()
}

// AppFactory builds an App from configuration
type AppFactory func(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*App, error)

// newApp is swapped out by tests
var newApp AppFactory = NewApp

type appDeps struct {
	backend syspkg.Backend
	runner  helpers.CommandRunner
	fs      afero.Fs
	checker mode.Checker
}

// NewApp wires the apt backend and the real system
func NewApp(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*App, error) {
	runner := helpers.NewOSCommandRunner()
	fs := afero.NewOsFs()

	return assemble(ctx, cfg, log, appDeps{
		backend: apt.New(runner, fs, logging.Component(log, "apt")),
		runner:  runner,
		fs:      fs,
		checker: mode.NewHTTPChecker(cfg.Network.CheckURLs, cfg.Network.CheckTimeout),
	})
}

func assemble(ctx context.Context, cfg *config.Config, log *zerolog.Logger, deps appDeps) (*App, error) {
	policy := classifier.New(cfg.CustomPrefixes, cfg.ProtectedPackages, cfg.RemovablePackages)

	state := mode.NewState(cfg.OfflineMode == core.SettingOffline, cfg.PinnedVersions, cfg.ProtectedPackages)
	modeOpts := mode.Options{
		Setting:     cfg.OfflineMode,
		OfflineHook: cfg.Hooks.Offline,
		OnlineHook:  cfg.Hooks.Online,
		Hooks:       mode.NewHookRunner(deps.runner, deps.fs, cfg.Hooks.Timeout),
		Checker:     deps.checker,
		Logger:      logging.Component(log, "mode"),
	}
	if cfg.File != "" {
		modeOpts.Persister = config.NewWriter(deps.fs, cfg.File)
	}
	modes := mode.NewManager(state, modeOpts)

	res := resolver.New(deps.backend, policy, resolver.Options{
		MaxDepth: cfg.Resolver.MaxDepth,
		TieBreak: cfg.Resolver.TieBreak,
	}, logging.Component(log, "resolver"))

	handler := conflict.New(res, deps.backend, policy, conflict.Config{
		ForceConfirmationRequired: cfg.ForceConfirmationRequired,
		AutoResolve:               cfg.AutoResolveConflicts,
	}, logging.Component(log, "conflict"))

	app := &App{Modes: modes, Classifier: policy}
	opts := engine.Options{
		Backend:    deps.backend,
		Classifier: policy,
		Modes:      modes,
		Resolver:   res,
		Handler:    handler,
		Commands:   deps.runner,
		Logger:     logging.Component(log, "engine"),

		Fs:           deps.fs,
		AptCacheDir:  cfg.Cleanup.AptCacheDir,
		OfflineRepos: cfg.Cleanup.OfflineRepos,
	}

	if cfg.Paths.DBFile != "" {
		journal, err := openJournal(ctx, deps.fs, cfg.Paths.DBFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Paths.DBFile).Msg("operation history disabled")
		} else {
			app.Journal = journal
			opts.Journal = journal
		}
	}

	app.Engine = engine.New(opts)
	return app, nil
}

func openJournal(ctx context.Context, fs afero.Fs, path string) (*db.DB, error) {
	if err := fsops.EnsureDir(fs, filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return db.New(ctx, path)
}
