package cmd

import (
	"fmt"
	"strings"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info command
func NewInfoCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <package>",
		Short: "Show package information",
		Long:  `Show a package's versions, classification, removal risk and reverse dependencies.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindOutput(cmd)
			if err := checkFormat(format); err != nil {
				return err
			}
			name := args[0]

			app, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			info, err := app.Engine.Info(cmd.Context(), name)
			if err != nil {
				ui.PrintError("%v", err)
				if core.IsCode(err, core.CodePackageNotFound) {
					if hints := app.Engine.Suggest(cmd.Context(), name); len(hints) > 0 {
						ui.PrintInfo("Did you mean: %s", strings.Join(hints, ", "))
					}
				}
				return err
			}

			log.Debug().Str("package", name).Msg("displayed package info")

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, info)
			}
			printPackageInfo(cmd, info)
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

func printPackageInfo(cmd *cobra.Command, info *engine.PackageInfo) {
	pkg := info.Package
	out := cmd.OutOrStdout()

	ui.PrintHeader(fmt.Sprintf("Package Information: %s", pkg.Name))
	fmt.Fprintln(out)

	ui.PrintKeyValue("Name", pkg.Name)
	ui.PrintKeyValue("Type", ui.ColorizePackageType(info.Type))
	ui.PrintKeyValue("Status", ui.ColorizeStatus(pkg.Status))
	ui.PrintKeyValue("Installed", orNone(pkg.Version))
	ui.PrintKeyValue("Candidate", orNone(pkg.Candidate))
	if info.PinnedVersion != "" {
		ui.PrintKeyValue("Pinned", info.PinnedVersion)
	}
	if pkg.Section != "" {
		ui.PrintKeyValue("Section", pkg.Section)
	}
	if pkg.IsInstalled() {
		ui.PrintKeyValue("Auto-installed", yesNo(pkg.AutoInstalled))
	}
	ui.PrintKeyValue("Protected", yesNo(info.Protected))
	ui.PrintKeyValue("Removable", yesNo(info.Removable))
	ui.PrintKeyValue("Removal risk", ui.ColorizeRisk(info.Risk))

	if len(info.AvailableVersions) > 0 {
		ui.PrintKeyValue("Available", strings.Join(info.AvailableVersions, ", "))
	}

	if len(pkg.Dependencies) > 0 {
		fmt.Fprintln(out)
		ui.PrintHeader("Depends on")
		ui.PrintList(pkg.Dependencies)
	}
	if len(pkg.Conflicts) > 0 {
		fmt.Fprintln(out)
		ui.PrintHeader("Conflicts with")
		ui.PrintList(pkg.Conflicts)
	}
	if len(info.ReverseDependencies) > 0 {
		fmt.Fprintln(out)
		ui.PrintHeader("Required by")
		ui.PrintList(info.ReverseDependencies)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
