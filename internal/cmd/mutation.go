package cmd

import (
	"context"
	"fmt"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/engine"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/spf13/cobra"
)

// mutation runs one engine operation with the given force and confirmation
type mutation func(ctx context.Context, force, confirmed bool) (*core.OperationResult, error)

type mutationFlags struct {
	force  bool
	yes    bool
	format string
}

func (f *mutationFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "let conflict strategies and forced removals run")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "approve every confirmation (implies --force)")
	addFormatFlag(cmd, &f.format)
}

// runMutation executes do, asks the user when the plan needs approval and
// reruns it confirmed. Without a terminal the confirmation is reported and
// the command fails with CONFIRMATION_REQUIRED.
func runMutation(cmd *cobra.Command, app *App, flags mutationFlags, do mutation) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stop := attachProgress(cmd, app, flags.format == formatText)
	force := flags.force || flags.yes
	res, err := do(ctx, force, flags.yes)

	if err == nil && res.NeedsConfirmation() && flags.format == formatText && isInteractive() {
		stop()
		approved, perr := askApproval(cmd, app, res)
		if perr != nil {
			return perr
		}
		if approved {
			stop = attachProgress(cmd, app, true)
			res, err = do(ctx, true, true)
		}
	}
	stop()

	if flags.format != formatText {
		if werr := writeStructured(out, flags.format, res); werr != nil {
			return werr
		}
	} else {
		printResult(out, app, res)
	}

	if err != nil {
		return err
	}
	return resultError(res)
}

// askApproval shows the plan and prompts. High-risk plans need the package
// name typed out.
func askApproval(cmd *cobra.Command, app *App, res *core.OperationResult) (bool, error) {
	out := cmd.OutOrStdout()
	if res.Plan != nil {
		ui.RenderPlan(out, res.Plan, app.Classifier.Type)
	}
	for _, c := range res.UserConfirmationsRequired {
		ui.PrintHeader(c.Title)
		if c.Description != "" {
			ui.PrintInfo("%s", c.Description)
		}
		ui.PrintList(c.Items)
	}

	target := res.Package
	label := fmt.Sprintf("Proceed with %s of %s", res.Operation, target)
	if target == "" {
		target = string(res.Operation)
		label = fmt.Sprintf("Proceed with %s", res.Operation)
	}
	if res.Summary != nil && res.Summary.Risk == core.RiskHigh {
		return confirmDangerous(string(res.Operation), target)
	}
	ok, err := confirm(label)
	if err != nil {
		return false, err
	}
	if !ok {
		ui.PrintInfo("Cancelled")
	}
	return ok, nil
}

// attachProgress draws a step bar while the engine executes a plan
func attachProgress(cmd *cobra.Command, app *App, enabled bool) func() {
	if !enabled {
		app.Engine.SetProgress(nil)
		return func() {}
	}

	var bar *ui.StepBar
	app.Engine.SetProgress(func(s engine.Step) {
		if bar == nil || bar.Total() != s.Total {
			bar = ui.NewStepBar(cmd.ErrOrStderr(), s.Total)
		}
		desc := fmt.Sprintf("%s %s", s.Action, s.Package)
		if s.Version != "" {
			desc += " " + s.Version
		}
		bar.Start(s.Index, desc)
	})

	return func() {
		if bar != nil {
			_ = bar.Finish()
			bar = nil
		}
		app.Engine.SetProgress(nil)
	}
}
