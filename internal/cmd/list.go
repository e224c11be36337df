package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var packageTypes = []core.PackageType{
	core.PackageTypeMetapackage,
	core.PackageTypeCustom,
	core.PackageTypeSystem,
}

// NewListCmd creates the list command
func NewListCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		format     string
		filterType string
		filterName string
		sortBy     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long:  `List installed packages classified as metapackage, custom or system.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindOutput(cmd)
			if err := checkFormat(format); err != nil {
				return err
			}

			filter := engine.ListFilter{Pattern: filterName}
			if filterType != "" {
				t, err := parsePackageType(filterType)
				if err != nil {
					return err
				}
				filter.Type = t
			}

			app, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Engine.List(cmd.Context(), filter)
			if err != nil {
				ui.PrintError("failed to list packages: %v", err)
				return err
			}
			sortPackages(result.Packages, sortBy, app.Classifier.Type)

			log.Debug().Int("count", len(result.Packages)).Msg("listed packages")

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, result)
			}

			if len(result.Packages) == 0 {
				if filterType != "" || filterName != "" {
					ui.PrintWarning("No packages found matching filters")
				} else {
					ui.PrintInfo("No packages installed")
				}
				return nil
			}

			printSummary(cmd, result)
			ui.RenderPackages(cmd.OutOrStdout(), result.Packages, app.Classifier.Type)
			return nil
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().StringVar(&filterType, "type", "", "filter by package type (metapackage, custom, system)")
	cmd.Flags().StringVar(&filterName, "name", "", "filter by package name (fuzzy match)")
	cmd.Flags().StringVar(&sortBy, "sort", "name", "sort by: name, type, status")

	return cmd
}

func parsePackageType(s string) (core.PackageType, error) {
	for _, t := range packageTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", core.NewErrorf(core.CodeInvalidInput, "unknown package type %q", s)
}

// sortPackages reorders pkgs; name order is the tiebreak
func sortPackages(pkgs []core.Package, sortBy string, typeOf ui.TypeFunc) {
	switch strings.ToLower(sortBy) {
	case "type":
		sort.SliceStable(pkgs, func(i, j int) bool {
			return typeOf(pkgs[i]) < typeOf(pkgs[j])
		})
	case "status":
		sort.SliceStable(pkgs, func(i, j int) bool {
			return pkgs[i].Status < pkgs[j].Status
		})
	}
}

// printSummary prints the per-type breakdown
func printSummary(cmd *cobra.Command, result *engine.ListResult) {
	out := cmd.OutOrStdout()
	ui.PrintHeader("Installed Packages")
	fmt.Fprintf(out, "Total: %d packages\n", len(result.Packages))

	var parts []string
	for _, t := range packageTypes {
		if n := result.Counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", ui.ColorizePackageType(t), n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(out, "  %s\n", strings.Join(parts, " | "))
	}
	fmt.Fprintln(out)
}
