package cmd

import (
	"fmt"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/mode"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewModeCmd creates the mode command
func NewModeCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		format  string
		status  bool
		online  bool
		offline bool
		auto    bool
	)

	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or switch the online/offline mode",
		Long: `Show or switch the package mode.

Offline mode installs pinned versions and never reaches for newer ones.
Online mode installs the newest candidate. Auto mode checks the package
repositories before each operation. Switching runs the configured hook
script and saves the setting to the configuration file.`,
		Args: cobra.NoArgs,
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

			var target core.Mode
			switch {
			case online:
				target = core.ModeOnline
			case offline:
				target = core.ModeOffline
			case auto:
				if err := app.Modes.SetAuto(); err != nil {
					ui.PrintError("failed to save mode setting: %v", err)
					return err
				}
				ui.PrintSuccess("Mode set to auto")
			}

			if target != "" {
				result, err := app.Modes.SwitchTo(cmd.Context(), target)
				if result != nil {
					for _, w := range result.Warnings {
						ui.PrintWarning("%s", w)
					}
				}
				if err != nil {
					ui.PrintError("failed to save mode setting: %v", err)
					return err
				}
				ui.PrintSuccess("Switched to %s mode", ui.ColorizeMode(result.Mode))
				log.Info().Str("mode", string(target)).Msg("mode switched")
			}

			if (target != "" || auto) && !status {
				return nil
			}

			st := app.Modes.Status(cmd.Context())
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, st)
			}
			printModeStatus(cmd, st)
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&status, "status", false, "show the current mode (default when no switch is given)")
	cmd.Flags().BoolVar(&online, "online", false, "switch to online mode")
	cmd.Flags().BoolVar(&offline, "offline", false, "switch to offline mode")
	cmd.Flags().BoolVar(&auto, "auto", false, "detect the mode from network reachability")
	cmd.MarkFlagsMutuallyExclusive("online", "offline", "auto")

	return cmd
}

func printModeStatus(cmd *cobra.Command, st *mode.Status) {
	ui.PrintHeader("Mode")
	ui.PrintKeyValue("Setting", string(st.Setting))
	if st.Mode != "" {
		ui.PrintKeyValue("Effective", ui.ColorizeMode(st.Mode))
	} else {
		ui.PrintKeyValue("Effective", ui.Warning.Sprint("unknown"))
	}
	if st.DetectError != "" {
		ui.PrintWarning("detection failed: %s", st.DetectError)
	}
	ui.PrintKeyValue("Pinned versions", fmt.Sprintf("%d", st.Pinned))
	printHook("Offline hook", st.OfflineHook)
	printHook("Online hook", st.OnlineHook)
}

func printHook(label string, hs *mode.HookStatus) {
	if hs == nil {
		ui.PrintKeyValue(label, "(none)")
		return
	}
	value := hs.Path
	if !hs.Available {
		value += " " + ui.Warning.Sprint("(not executable)")
	}
	ui.PrintKeyValue(label, value)
}
