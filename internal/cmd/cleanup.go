package cmd

import (
	"context"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		flags mutationFlags
		req   engine.CleanupRequest
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphaned packages and reclaim disk space",
		Long: `Remove automatically installed packages nothing depends on any more,
clean the apt package cache and prune offline repositories.

--all selects orphans and the apt cache. In offline mode it also prunes the
offline repositories and cleans the cache aggressively. Removing orphans
needs confirmation like any other implicit removal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindOutput(cmd)
			if err := checkFormat(flags.format); err != nil {
				return err
			}
			if !all && req.Empty() {
				return cmd.Help()
			}

			app, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if all {
				req.Orphans = true
				req.AptCache = true
				if offlineNow(cmd.Context(), app) {
					req.OfflineRepos = true
					req.Aggressive = true
				}
			}

			log.Info().
				Bool("orphans", req.Orphans).
				Bool("apt_cache", req.AptCache).
				Bool("offline_repos", req.OfflineRepos).
				Bool("aggressive", req.Aggressive).
				Msg("starting cleanup")

			return runMutation(cmd, app, flags, func(ctx context.Context, _, confirmed bool) (*core.OperationResult, error) {
				r := req
				r.Confirmed = confirmed
				return app.Engine.Cleanup(ctx, r)
			})
		},
	}

	cmd.Flags().BoolVar(&req.Orphans, "orphans", false, "remove orphaned automatically installed packages")
	cmd.Flags().BoolVar(&req.AptCache, "apt-cache", false, "clean the apt package cache")
	cmd.Flags().BoolVar(&req.Aggressive, "aggressive", false, "drop every cached archive, not only obsolete ones")
	cmd.Flags().BoolVar(&req.OfflineRepos, "offline-repos", false, "prune superseded archives from offline repositories")
	cmd.Flags().BoolVar(&all, "all", false, "clean everything that fits the current mode")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "approve every confirmation")
	addFormatFlag(cmd, &flags.format)

	return cmd
}

// offlineNow detects the mode, falling back to the configured one
func offlineNow(ctx context.Context, app *App) bool {
	offline, err := app.Modes.IsOfflineMode(ctx)
	if err != nil {
		return app.Modes.State().Snapshot().Offline
	}
	return offline
}
