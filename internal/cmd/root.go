package cmd

import (
	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/logging"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. cfg and log are replaced in place
// when --config names another file.
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string) *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "dpm",
		Short: "Debian package manager",
		Long: `Manage Debian packages and custom metapackages with safe removals,
online/offline modes with pinned versions, and conflict resolution.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noColor || cfg.Logging.Color == "never" {
				ui.DisableColors()
			}
			if !cmd.Flags().Changed("config") {
				return nil
			}

			loaded, err := config.Load(afero.NewOsFs(), configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded
			*log = *logging.NewLogger(logging.Config{
				Level:   cfg.Logging.Level,
				LogFile: cfg.Paths.LogFile,
				NoColor: noColor || cfg.Logging.Color == "never",
			})
			log.Debug().Str("config", cfg.File).Msg("loaded configuration")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default $DPM_CONFIG or ~/.config/debian-package-manager/config.json)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewInstallCmd(cfg, log))
	cmd.AddCommand(NewRemoveCmd(cfg, log))
	cmd.AddCommand(NewListCmd(cfg, log))
	cmd.AddCommand(NewInfoCmd(cfg, log))
	cmd.AddCommand(NewModeCmd(cfg, log))
	cmd.AddCommand(NewHealthCmd(cfg, log))
	cmd.AddCommand(NewFixCmd(cfg, log))
	cmd.AddCommand(NewCleanupCmd(cfg, log))
	cmd.AddCommand(NewHistoryCmd(cfg, log))
	cmd.AddCommand(NewConfigCmd(cfg, log))
	cmd.AddCommand(NewCompletionCmd(cfg, log))
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}
