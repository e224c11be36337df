package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// Prompt hooks, replaced in tests
var (
	isInteractive = func() bool {
		fd := os.Stdin.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	confirm          = ui.ConfirmPrompt
	confirmDangerous = ui.ConfirmDangerousAction
)

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "format", "o", formatText, "output format: text, json or yaml")
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return core.NewErrorf(core.CodeInvalidInput, "unknown output format %q", format)
}

// bindOutput points the ui printers at the command's writers
func bindOutput(cmd *cobra.Command) {
	ui.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return core.NewErrorf(core.CodeInvalidInput, "unknown output format %q", format)
}

// printResult reports an operation result in text form
func printResult(w io.Writer, app *App, res *core.OperationResult) {
	verb := string(res.Operation)
	target := resultTarget(res)

	switch {
	case res.Success:
		ui.PrintSuccess("%s %s completed (%s mode)", verb, target, orUnknown(string(res.Mode)))
	case res.NeedsConfirmation():
		ui.PrintWarning("%s %s needs confirmation", verb, target)
	default:
		ui.PrintError("%s %s failed", verb, target)
	}

	if res.Strategy != "" {
		ui.PrintKeyValue("Strategy", res.Strategy)
	}
	if res.Force != "" && res.Force != core.ForceNone {
		ui.PrintKeyValue("Force", string(res.Force))
	}

	if res.FreedBytes > 0 {
		ui.PrintKeyValue("Freed", humanize.IBytes(uint64(res.FreedBytes)))
	}
	if len(res.CleanedPaths) > 0 {
		ui.PrintKeyValue("Cleaned", fmt.Sprintf("%d path(s)", len(res.CleanedPaths)))
	}

	if len(res.PackagesAffected) > 0 {
		fmt.Fprintln(w)
		ui.RenderPackages(w, res.PackagesAffected, app.Classifier.Type)
	}

	for _, c := range res.UserConfirmationsRequired {
		fmt.Fprintln(w)
		ui.PrintHeader(c.Title)
		if c.Description != "" {
			ui.PrintInfo("%s", c.Description)
		}
		ui.PrintList(c.Items)
	}

	for _, warning := range res.Warnings {
		ui.PrintWarning("%s", warning)
	}
	for _, e := range res.Errors {
		ui.PrintError("%s", e)
	}
}

func resultTarget(res *core.OperationResult) string {
	if res.Package == "" {
		return "system"
	}
	return res.Package
}

// resultError maps a finished result to the command's error
func resultError(res *core.OperationResult) error {
	if res.Success {
		return nil
	}
	if res.NeedsConfirmation() {
		return core.NewErrorf(core.CodeConfirmationRequired, "%s of %s needs confirmation; rerun with --yes", res.Operation, resultTarget(res))
	}
	msg := fmt.Sprintf("%s %s failed", res.Operation, resultTarget(res))
	if len(res.Errors) > 0 {
		msg += ": " + strings.Join(res.Errors, "; ")
	}
	return core.NewError(resultCode(res), msg)
}

func resultCode(res *core.OperationResult) core.ErrorCode {
	for _, code := range []core.ErrorCode{
		core.CodeProtectionViolation,
		core.CodeInvalidInput,
		core.CodePackageNotFound,
		core.CodeUnsatisfiableDependency,
	} {
		if res.HasErrorCode(code) {
			return code
		}
	}
	return core.CodeBackendFailure
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
