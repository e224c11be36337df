package cmd

import (
	"github.com/quantmind-br/dpm/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewFixCmd creates the fix command
func NewFixCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Repair broken packages",
		Long:  `Finish interrupted installs and repair broken dependencies, then report what is still broken.`,
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

			log.Info().Msg("repairing broken packages")
			res, err := app.Engine.FixBroken(cmd.Context())
			if err != nil {
				return err
			}

			if format != formatText {
				if err := writeStructured(cmd.OutOrStdout(), format, res); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), app, res)
			}
			return resultError(res)
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}
