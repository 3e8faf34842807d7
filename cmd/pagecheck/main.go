package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/pagecheck/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errVerificationFailed signals a failed verification under --strict-exit.
// The failure line has already been printed by then.
var errVerificationFailed = errors.New("verification failed")

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Cancel on SIGINT/SIGTERM; teardown still runs ────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// ── 4. Build and execute the command tree ───────────────────────
	err := newRootCmd(cfg).ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errVerificationFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "pagecheck",
		Short: "Verify the upload screen of the handwriting generator in a headless browser",
		Long: `pagecheck opens the application in a headless browser, waits for the
upload screen (title, style prompt, upload area), checks the prompt starts
empty and saves a screenshot.

Running pagecheck without a subcommand is the same as "pagecheck run".`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerification(cmd.Context(), cfg)
		},
	}
	root.Flags().AddFlagSet(runFlagSet(cfg))

	root.AddCommand(newRunCmd(cfg), newFixtureCmd(cfg))
	return root
}

// initLogger configures slog based on the LogConfig. Logs go to stderr:
// stdout carries the result lines.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
