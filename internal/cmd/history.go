package cmd

import (
	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/db"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		format string
		limit  int
		pkg    string
		prune  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past operations",
		Long:  `Show the journal of install, remove and fix operations, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindOutput(cmd)
			if err := checkFormat(format); err != nil {
				return err
			}

			app, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Journal == nil {
				ui.PrintError("operation history is unavailable")
				return core.NewErrorf(core.CodeConfig, "history database %q could not be opened", cfg.Paths.DBFile)
			}

			ctx := cmd.Context()
			if cmd.Flags().Changed("prune") {
				removed, err := app.Journal.Prune(ctx, prune)
				if err != nil {
					ui.PrintError("failed to prune history: %v", err)
					return err
				}
				log.Info().Int64("removed", removed).Int("kept", prune).Msg("pruned history")
				ui.PrintSuccess("Removed %d old operation(s)", removed)
				return nil
			}

			var ops []db.Operation
			if pkg != "" {
				ops, err = app.Journal.ListByPackage(ctx, pkg, limit)
			} else {
				ops, err = app.Journal.List(ctx, limit)
			}
			if err != nil {
				ui.PrintError("failed to read history: %v", err)
				return err
			}

			if format != formatText {
				if ops == nil {
					ops = []db.Operation{}
				}
				return writeStructured(cmd.OutOrStdout(), format, ops)
			}
			if len(ops) == 0 {
				ui.PrintInfo("No operations recorded")
				return nil
			}
			ui.RenderHistory(cmd.OutOrStdout(), ops)
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many operations (0 for all)")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "only operations on this package")
	cmd.Flags().IntVar(&prune, "prune", 0, "delete all but the newest N operations")

	return cmd
}
