package cmd

import (
	"context"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command
func NewInstallCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		flags   mutationFlags
		version string
		offline bool
		online  bool
	)

	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package",
		Long: `Install a package together with its dependencies.

Metapackages pull in every missing member. In offline mode pinned versions
are used; in online mode the newest candidate is installed. When the plan
would remove packages you did not ask for, dpm asks first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindOutput(cmd)
			if err := checkFormat(flags.format); err != nil {
				return err
			}

			name := args[0]
			var override *core.Mode
			switch {
			case offline:
				m := core.ModeOffline
				override = &m
			case online:
				m := core.ModeOnline
				override = &m
			}

			log.Info().
				Str("package", name).
				Str("version", version).
				Bool("force", flags.force).
				Msg("starting installation")

			app, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			return runMutation(cmd, app, flags, func(ctx context.Context, force, confirmed bool) (*core.OperationResult, error) {
				return app.Engine.Install(ctx, engine.InstallRequest{
					Name:      name,
					Version:   version,
					Force:     force,
					Confirmed: confirmed,
					Mode:      override,
				})
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&version, "version", "", "install this exact version")
	cmd.Flags().BoolVar(&offline, "offline", false, "use offline mode for this install")
	cmd.Flags().BoolVar(&online, "online", false, "use online mode for this install")
	cmd.MarkFlagsMutuallyExclusive("offline", "online")

	return cmd
}
