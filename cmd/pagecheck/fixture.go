package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/pagecheck/config"
	"github.com/use-agent/pagecheck/fixture"
)

func newFixtureCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Serve a stand-in upload screen for local verification",
		Long: `Fixture serves a copy of the upload screen with the same markers as the
real application. Variants remove a marker or pre-fill the prompt so each
failure path can be exercised without touching the application.`,
		Example: `  pagecheck fixture
  pagecheck fixture --variant prefilled --port 5001
  pagecheck fixture --delay 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveFixture(cmd.Context(), cfg.Fixture)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Fixture.Host, "host", cfg.Fixture.Host, "listen host")
	flags.IntVar(&cfg.Fixture.Port, "port", cfg.Fixture.Port, "listen port")
	flags.StringVar(&cfg.Fixture.Mode, "mode", cfg.Fixture.Mode, "gin mode: debug, release or test")
	flags.StringVar(&cfg.Fixture.Variant, "variant", cfg.Fixture.Variant, "ok, missing-title, missing-prompt, missing-upload or prefilled")
	flags.DurationVar(&cfg.Fixture.RenderDelay, "delay", cfg.Fixture.RenderDelay, "render the screen client-side after this delay")
	return cmd
}

func serveFixture(ctx context.Context, cfg config.FixtureConfig) error {
	variant, err := fixture.ParseVariant(cfg.Variant)
	if err != nil {
		return err
	}

	// ── 1. Setup router ─────────────────────────────────────────────
	router := fixture.NewRouter(fixture.Options{
		Variant:     variant,
		RenderDelay: cfg.RenderDelay,
		Mode:        cfg.Mode,
	})

	// ── 2. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("fixture listening", "addr", addr, "variant", variant, "delay", cfg.RenderDelay.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── 3. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fixture server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("fixture server forced shutdown", "error", err)
		return err
	}
	slog.Info("fixture stopped")
	return nil
}
