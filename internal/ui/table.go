package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/db"
)

// TypeFunc classifies a package for display
type TypeFunc func(core.Package) core.PackageType

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderPlan prints the actions of a plan in execution-independent order
func RenderPlan(w io.Writer, plan *core.DependencyPlan, typeOf TypeFunc) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Action", "Package", "Type", "Detail"}),
		tablewriter.WithAlignment(tw.MakeAlign(4, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleLight)),
	)

	for _, pkg := range plan.ToRemove {
		table.Append(Error.Sprint("remove"), pkg.Name, ColorizePackageType(typeOf(pkg)), string(plan.Reasons[pkg.Name]))
	}
	for _, pkg := range plan.ToInstall {
		table.Append(Success.Sprint("install"), pkg.Name, ColorizePackageType(typeOf(pkg)), orDash(pkg.TargetVersion()))
	}
	for _, pkg := range plan.ToUpgrade {
		table.Append(Info.Sprint("upgrade"), pkg.Name, ColorizePackageType(typeOf(pkg)),
			fmt.Sprintf("%s %s %s", orDash(pkg.Version), Arrow, pkg.Candidate))
	}

	table.Render()
}

// RenderPackages prints installed packages
func RenderPackages(w io.Writer, pkgs []core.Package, typeOf TypeFunc) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Name", "Version", "Type", "Status", "Auto"}),
		tablewriter.WithAlignment(tw.MakeAlign(5, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, pkg := range pkgs {
		auto := ""
		if pkg.AutoInstalled {
			auto = "yes"
		}
		table.Append(pkg.Name, orDash(pkg.Version), ColorizePackageType(typeOf(pkg)), ColorizeStatus(pkg.Status), auto)
	}

	table.Render()
}

// RenderHistory prints journaled operations
func RenderHistory(w io.Writer, ops []db.Operation) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"ID", "Date", "Operation", "Package", "Result", "Strategy", "Duration"}),
		tablewriter.WithAlignment(tw.MakeAlign(7, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, op := range ops {
		result := Success.Sprint("ok")
		if !op.Success {
			result = Error.Sprint("failed")
		}
		table.Append(
			fmt.Sprintf("%d", op.ID),
			op.StartedAt.Local().Format("2006-01-02 15:04"),
			op.Operation,
			orDash(op.Package),
			result,
			orDash(op.Strategy),
			op.Duration.Round(time.Millisecond).String(),
		)
	}

	table.Render()
}
