package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/quantmind-br/dpm/internal/core"
)

// Color scheme for dpm
var (
	// Primary actions
	Success = color.New(color.FgGreen)
	Error   = color.New(color.FgRed, color.Bold)
	Warning = color.New(color.FgYellow)
	Info    = color.New(color.FgCyan)

	// Secondary actions
	Highlight = color.New(color.FgHiCyan, color.Bold)
	Muted     = color.New(color.Faint)
	Bold      = color.New(color.Bold)

	// Status indicators
	CheckMark = color.GreenString("✓")
	CrossMark = color.RedString("✗")
	Arrow     = color.CyanString("→")
	Bullet    = color.HiBlackString("•")

	// Package type colors
	TypeMetapackage = color.New(color.FgMagenta)
	TypeCustom      = color.New(color.FgBlue)
	TypeSystem      = color.New(color.FgHiBlack)

	// Risk colors
	RiskHigh   = color.New(color.FgRed, color.Bold)
	RiskMedium = color.New(color.FgYellow)
	RiskLow    = color.New(color.FgGreen)
)

// Output destinations. Commands point these at cobra's writers.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// SetOutput redirects printed output; nil restores the process streams
func SetOutput(out, errOut io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	Stdout = out
	Stderr = errOut
}

// InitColors initializes color settings based on environment
func InitColors() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	if os.Getenv("TERM") == "dumb" {
		color.NoColor = true
	}
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Fprintf(Stdout, "%s %s\n", CheckMark, fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(Stderr, "%s Error: %s\n", CrossMark, fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Fprintf(Stderr, "Warning: %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Fprintf(Stdout, "%s %s\n", Arrow, fmt.Sprintf(format, args...))
}

// PrintKeyValue prints a key-value pair with color
func PrintKeyValue(key, value string) {
	Bold.Fprintf(Stdout, "%s: ", key)
	fmt.Fprintln(Stdout, value)
}

// PrintHeader prints a section header
func PrintHeader(text string) {
	fmt.Fprintln(Stdout)
	Bold.Fprintln(Stdout, text)
	Muted.Fprintln(Stdout, "────────────────────────────────────────")
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(Stdout, "  %s %s\n", Bullet, item)
	}
}

// ColorizePackageType returns a colored package type string
func ColorizePackageType(t core.PackageType) string {
	switch t {
	case core.PackageTypeMetapackage:
		return TypeMetapackage.Sprint(t)
	case core.PackageTypeCustom:
		return TypeCustom.Sprint(t)
	case core.PackageTypeSystem:
		return TypeSystem.Sprint(t)
	default:
		return string(t)
	}
}

// ColorizeRisk returns a colored risk level
func ColorizeRisk(r core.RiskLevel) string {
	switch r {
	case core.RiskHigh:
		return RiskHigh.Sprint(r)
	case core.RiskMedium:
		return RiskMedium.Sprint(r)
	case core.RiskLow:
		return RiskLow.Sprint(r)
	default:
		return string(r)
	}
}

// ColorizeMode highlights offline mode
func ColorizeMode(m core.Mode) string {
	if m == core.ModeOffline {
		return Warning.Sprint(m)
	}
	return Success.Sprint(m)
}

// ColorizeStatus colors a package status
func ColorizeStatus(s core.PackageStatus) string {
	switch s {
	case core.StatusInstalled:
		return Success.Sprint(s)
	case core.StatusBroken:
		return Error.Sprint(s)
	case core.StatusPending:
		return Info.Sprint(s)
	default:
		return Muted.Sprint(s)
	}
}

// DisableColors disables all color output
func DisableColors() {
	color.NoColor = true
}
