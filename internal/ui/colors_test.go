package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	t.Cleanup(func() { SetOutput(nil, nil) })
	return &out, &errOut
}

func TestInitColors(t *testing.T) {
	t.Run("with NO_COLOR", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")

		color.NoColor = false
		InitColors()

		assert.True(t, color.NoColor)
	})

	t.Run("with TERM=dumb", func(t *testing.T) {
		t.Setenv("TERM", "dumb")

		color.NoColor = false
		InitColors()

		assert.True(t, color.NoColor)
	})

	t.Run("normal terminal", func(_ *testing.T) {
		os.Unsetenv("NO_COLOR")

		// Just ensure it doesn't panic
		InitColors()
	})
}

func TestPrintFunctions(t *testing.T) {
	withoutColors(t)

	out, errOut := captureOutput(t)

	PrintSuccess("installed %s", "acme-tools")
	PrintInfo("resolving %s", "libfoo")
	PrintKeyValue("Mode", "offline")
	PrintList([]string{"libacme"})
	PrintHeader("Plan")

	assert.Contains(t, out.String(), "✓")
	assert.Contains(t, out.String(), "installed acme-tools")
	assert.Contains(t, out.String(), "resolving libfoo")
	assert.Contains(t, out.String(), "Mode: offline")
	assert.Contains(t, out.String(), "libacme")
	assert.Contains(t, out.String(), "Plan\n")

	PrintError("backend %s", "failed")
	PrintWarning("lock held")

	assert.Contains(t, errOut.String(), "Error: backend failed")
	assert.Contains(t, errOut.String(), "Warning: lock held")
}

func TestColorizers(t *testing.T) {
	withoutColors(t)

	assert.Equal(t, "metapackage", ColorizePackageType(core.PackageTypeMetapackage))
	assert.Equal(t, "custom", ColorizePackageType(core.PackageTypeCustom))
	assert.Equal(t, "system", ColorizePackageType(core.PackageTypeSystem))
	assert.Equal(t, "unknown", ColorizePackageType("unknown"))

	assert.Equal(t, "high", ColorizeRisk(core.RiskHigh))
	assert.Equal(t, "low", ColorizeRisk(core.RiskLow))
	assert.Equal(t, "offline", ColorizeMode(core.ModeOffline))
	assert.Equal(t, "broken", ColorizeStatus(core.StatusBroken))
}

// withoutColors disables color output for the duration of t
func withoutColors(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	DisableColors()
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColorControls(t *testing.T) {
	t.Run("DisableColors", func(t *testing.T) {
		color.NoColor = false
		DisableColors()
		assert.True(t, color.NoColor)
	})
}
