package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/use-agent/pagecheck/config"
	"github.com/use-agent/pagecheck/engine"
	"github.com/use-agent/pagecheck/models"
	"github.com/use-agent/pagecheck/runner"
	"github.com/use-agent/pagecheck/webhook"
)

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the upload screen verification",
		Long: `Run launches the browser, navigates to the target URL and waits for the
upload screen markers. On success the screenshot path is printed; on failure
the error is printed and a failure screenshot is attempted.

The exit status is 0 even when the verification fails, unless --strict-exit
is set. A browser that cannot be launched always exits with status 1.`,
		Example: `  pagecheck run
  pagecheck run --url http://127.0.0.1:5173 --engine playwright
  pagecheck run --repeat 3 --report /tmp/pagecheck.json --strict-exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerification(cmd.Context(), cfg)
		},
	}
	cmd.Flags().AddFlagSet(runFlagSet(cfg))
	return cmd
}

// runFlagSet binds the run flags onto cfg, using the environment values as
// defaults.
func runFlagSet(cfg *config.Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false

	flags.StringVar(&cfg.Target.URL, "url", cfg.Target.URL, "address of the running application")
	flags.BoolVar(&cfg.Target.Preflight, "preflight", cfg.Target.Preflight, "probe the target over HTTP before launching the browser")

	flags.StringVar(&cfg.Browser.Engine, "engine", cfg.Browser.Engine, `browser driver: "rod" or "playwright"`)
	flags.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run the browser headless")
	flags.BoolVar(&cfg.Browser.NoSandbox, "no-sandbox", cfg.Browser.NoSandbox, "disable the Chromium sandbox")
	flags.StringVar(&cfg.Browser.BrowserBin, "browser-bin", cfg.Browser.BrowserBin, "path to the Chromium binary")
	flags.BoolVar(&cfg.Browser.Stealth, "stealth", cfg.Browser.Stealth, "inject the stealth script (rod only)")

	flags.DurationVar(&cfg.Verify.NavigationTimeout, "nav-timeout", cfg.Verify.NavigationTimeout, "page load timeout")
	flags.DurationVar(&cfg.Verify.WaitTimeout, "wait-timeout", cfg.Verify.WaitTimeout, "timeout for each marker")
	flags.DurationVar(&cfg.Verify.AssertTimeout, "assert-timeout", cfg.Verify.AssertTimeout, "how long the empty prompt check retries")
	flags.IntVar(&cfg.Verify.Repeat, "repeat", cfg.Verify.Repeat, "run the verification this many times and compare outcomes")
	flags.DurationVar(&cfg.Verify.RepeatInterval, "repeat-interval", cfg.Verify.RepeatInterval, "minimum spacing between repeated runs")
	flags.BoolVar(&cfg.Verify.StrictExit, "strict-exit", cfg.Verify.StrictExit, "exit with status 1 when the verification fails")

	flags.StringVar(&cfg.Output.ScreenshotPath, "screenshot", cfg.Output.ScreenshotPath, "success screenshot path")
	flags.StringVar(&cfg.Output.FailureScreenshotPath, "failure-screenshot", cfg.Output.FailureScreenshotPath, "failure screenshot path (empty disables)")
	flags.StringVar(&cfg.Output.FailureSnapshotPath, "failure-snapshot", cfg.Output.FailureSnapshotPath, "write a Markdown snapshot of the page on failure")
	flags.StringVar(&cfg.Output.ReportPath, "report", cfg.Output.ReportPath, "write the JSON run report to this path")
	flags.BoolVar(&cfg.Output.FullPage, "full-page", cfg.Output.FullPage, "capture the whole scrollable page")

	flags.StringVar(&cfg.Webhook.URL, "webhook", cfg.Webhook.URL, "POST the run report to this URL")

	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "text or json")
	return flags
}

// runVerification executes the configured number of passes and handles the
// artifacts that live outside a single pass: the JSON report, the webhook
// and the exit status.
func runVerification(ctx context.Context, cfg *config.Config) error {
	// Flags may have changed the log settings.
	initLogger(cfg.Log)

	eng, err := engine.New(cfg.Browser.Engine, cfg.Browser)
	if err != nil {
		return err
	}
	r := runner.New(eng, cfg)

	slog.Info("pagecheck starting",
		"url", cfg.Target.URL,
		"engine", eng.Name(),
		"headless", cfg.Browser.Headless,
		"repeat", cfg.Verify.Repeat,
	)

	var (
		reports []*models.Report
		result  any
		passed  bool
	)
	if cfg.Verify.Repeat > 1 {
		summary, err := r.RunRepeated(ctx, cfg.Verify.Repeat, cfg.Verify.RepeatInterval)
		if err != nil {
			return err
		}
		reports, result, passed = summary.Reports, summary, summary.Passed()
		slog.Info("repeated verification finished",
			"passes", len(summary.Reports),
			"passed", passed,
			"consistent", summary.Consistent,
		)
	} else {
		report, err := r.Run(ctx)
		if err != nil {
			return err
		}
		reports, result, passed = []*models.Report{report}, report, report.Success
	}

	if path := cfg.Output.ReportPath; path != "" {
		if err := runner.WriteReport(path, result); err != nil {
			slog.Warn("report not written", "path", path, "error", err)
		} else {
			slog.Info("report written", "path", path)
		}
	}

	notify(ctx, cfg.Webhook, reports)

	if !passed && cfg.Verify.StrictExit {
		return errVerificationFailed
	}
	return nil
}

// notify delivers one event per report. Delivery errors are logged only.
func notify(ctx context.Context, cfg config.WebhookConfig, reports []*models.Report) {
	if cfg.URL == "" {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Timeout)
	defer cancel()

	for _, rep := range reports {
		err := webhook.DeliverWithRetry(wctx, cfg.URL, cfg.Secret, webhook.NewEvent(rep), webhook.RetryDelays)
		if err != nil {
			slog.Warn("webhook delivery failed", "runID", rep.RunID, "error", err)
		}
	}
}
