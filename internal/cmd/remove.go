package cmd

import (
	"context"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRemoveCmd creates the remove command
func NewRemoveCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		flags mutationFlags
		purge bool
	)

	cmd := &cobra.Command{
		Use:     "remove <package>",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Remove a package",
		Long: `Remove a package and everything that depends on it.

Protected packages are never removed. Removing packages other than the one
named needs confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindOutput(cmd)
			if err := checkFormat(flags.format); err != nil {
				return err
			}

			name := args[0]
			log.Info().
				Str("package", name).
				Bool("purge", purge).
				Bool("force", flags.force).
				Msg("starting removal")

			app, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			return runMutation(cmd, app, flags, func(ctx context.Context, force, confirmed bool) (*core.OperationResult, error) {
				return app.Engine.Remove(ctx, engine.RemoveRequest{
					Name:      name,
					Force:     force,
					Confirmed: confirmed,
					Purge:     purge,
				})
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&purge, "purge", false, "also remove configuration files")

	return cmd
}
