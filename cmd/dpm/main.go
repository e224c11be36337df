package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantmind-br/dpm/internal/cmd"
	"github.com/quantmind-br/dpm/internal/config"
	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/logging"
	"github.com/quantmind-br/dpm/internal/ui"
	"github.com/spf13/afero"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code
func run(ctx context.Context, args []string) int {
	// Load configuration
	cfg, err := config.Load(afero.NewOsFs(), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return core.ExitFailure
	}

	ui.InitColors()

	// Initialize logger
	log := logging.NewLogger(logging.Config{
		Level:   cfg.Logging.Level,
		LogFile: cfg.Paths.LogFile,
		NoColor: cfg.Logging.Color == "never",
	})

	// Execute root command
	rootCmd := cmd.NewRootCmd(cfg, log, version)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if core.IsCode(err, core.CodeProtectionViolation) {
			log.Error().Err(err).Msg("refusing to touch a protected package")
		} else {
			log.Debug().Err(err).Msg("command failed")
		}
		return core.ExitCode(err)
	}
	return core.ExitSuccess
}
