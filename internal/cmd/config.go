package cmd

import (
	"fmt"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd(cfg *config.Config, _ *zerolog.Logger) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after defaults, the config file and DPM_*
environment variables have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == formatText {
				format = formatYAML
			}
			if err := checkFormat(format); err != nil {
				return err
			}
			return writeStructured(cmd.OutOrStdout(), format, cfg)
		},
	}
	addFormatFlag(cmd, &format)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			path := cfg.File
			if path == "" {
				path = config.ResolvePath("")
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	})

	return cmd
}
