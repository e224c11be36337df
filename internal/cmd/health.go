package cmd

import (
	"fmt"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewHealthCmd creates the health command
func NewHealthCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "health",
		Aliases: []string{"doctor"},
		Short:   "Check package system health",
		Long: `Check for broken packages, held package locks, pinned versions the
repositories cannot provide, mode hooks and the tools dpm needs.`,
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

			report, err := app.Engine.Health(cmd.Context())
			if err != nil {
				ui.PrintError("health check failed: %v", err)
				return err
			}

			log.Debug().Bool("healthy", report.Healthy).Msg("health check finished")

			if format != formatText {
				if err := writeStructured(cmd.OutOrStdout(), format, report); err != nil {
					return err
				}
			} else {
				printHealth(report)
			}

			if !report.Healthy {
				return core.NewError(core.CodeBackendFailure, "package system is unhealthy")
			}
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

func printHealth(report *engine.HealthReport) {
	ui.PrintHeader("System Health")
	ui.PrintKeyValue("Backend", report.Backend)
	if report.Mode != nil {
		effective := string(report.Mode.Mode)
		if report.Mode.Mode != "" {
			effective = ui.ColorizeMode(report.Mode.Mode)
		}
		ui.PrintKeyValue("Mode", fmt.Sprintf("%s (setting: %s)", orUnknown(effective), report.Mode.Setting))
	}

	if len(report.Broken) > 0 {
		ui.PrintError("%d broken package(s)", len(report.Broken))
		ui.PrintList(report.Broken)
		ui.PrintInfo("Run 'dpm fix' to repair them")
	}
	for _, l := range report.Locks {
		if l.PID > 0 {
			ui.PrintError("lock %s is held by process %d", l.Path, l.PID)
		} else {
			ui.PrintError("lock %s is held", l.Path)
		}
	}
	for _, issue := range report.PinIssues {
		ui.PrintError("pin %s=%s: %s", issue.Package, issue.Version, issue.Reason)
	}
	if len(report.MissingCommands) > 0 {
		ui.PrintError("missing commands")
		ui.PrintList(report.MissingCommands)
	}
	for _, w := range report.Warnings {
		ui.PrintWarning("%s", w)
	}

	if report.Healthy {
		ui.PrintSuccess("No problems found")
	}
}
