package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/utils"
	"github.com/use-agent/pagecheck/engine"
	"github.com/use-agent/pagecheck/models"
	"github.com/use-agent/pagecheck/simhash"
	"github.com/use-agent/pagecheck/snapshot"
)

// failureArtifactTimeout bounds the best-effort failure capture. It runs on a
// context detached from the run's cancellation so an aborted run still gets
// its screenshot.
const failureArtifactTimeout = 10 * time.Second

// Run executes one verification pass.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Validate          – reject a broken plan before spending a browser
//  2. Preflight         – optional HTTP probe of the target, logged only
//  3. Launch            – start the browser; failure is fatal
//  4. DEFER: teardown   – the browser is closed exactly once on every path
//  5. Open page         – one tab for the whole run; failure is fatal
//  6. Execute steps     – navigate, waits, assertion, screenshot, in order
//  7. Outcome           – success line + fingerprint, or the outer failure
//     handler: error line, best-effort failure screenshot and snapshot
//
// Verification failures are reported in the returned Report with a nil
// error. Only an invalid plan, a launch failure and a page-open failure
// return an error; those leave no report.
func (r *Runner) Run(ctx context.Context) (*models.Report, error) {
	start := time.Now()

	// ── 1. Validate ──────────────────────────────────────────────────
	if err := r.plan.Validate(); err != nil {
		return nil, err
	}

	report := &models.Report{
		RunID:     r.newID(),
		Plan:      r.plan.Name,
		Engine:    r.engine.Name(),
		TargetURL: r.targetURL(),
		StartedAt: start,
	}
	log := slog.With("runID", report.RunID, "engine", report.Engine)

	// ── 2. Preflight ─────────────────────────────────────────────────
	r.preflight(ctx, log, report.TargetURL)

	// ── 3. Launch ────────────────────────────────────────────────────
	browser, err := r.engine.Launch(ctx)
	if err != nil {
		return nil, models.NewVerifyError(models.ErrCodeLaunch, "failed to launch browser", err)
	}

	// ── 4. DEFER: teardown ───────────────────────────────────────────
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.Warn("browser close reported an error", "error", closeErr)
		}
	}()

	// ── 5. Open page ─────────────────────────────────────────────────
	page, err := browser.NewPage(ctx, engine.PageOptions{
		Width:  r.cfg.Browser.ViewportWidth,
		Height: r.cfg.Browser.ViewportHeight,
	})
	if err != nil {
		return nil, models.NewVerifyError(models.ErrCodePage, "failed to open page", err)
	}
	report.Timing.LaunchMs = time.Since(start).Milliseconds()
	log.Debug("page opened", "launchMs", report.Timing.LaunchMs)

	// ── 6. Execute steps ─────────────────────────────────────────────
	stepsStart := time.Now()
	stepErr := r.executeSteps(ctx, log, page, report)
	report.Timing.StepsMs = time.Since(stepsStart).Milliseconds()

	// ── 7. Outcome ───────────────────────────────────────────────────
	if stepErr != nil {
		r.fail(ctx, log, page, report, stepErr)
	} else {
		report.Success = true
		r.fingerprint(ctx, log, page, report)
		log.Info("verification passed",
			"url", report.TargetURL,
			"screenshot", report.ScreenshotPath,
			"stepsMs", report.Timing.StepsMs,
		)
	}

	report.Timing.TotalMs = time.Since(start).Milliseconds()
	return report, nil
}

// preflight probes the target and logs what it found. It never fails the run:
// an unreachable target surfaces through navigation like it would without it.
func (r *Runner) preflight(ctx context.Context, log *slog.Logger, url string) {
	if r.prober == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, r.cfg.Target.PreflightTimeout)
	defer cancel()

	res, err := r.prober.Check(pctx, url)
	if err != nil {
		log.Warn("preflight: target not reachable, continuing", "url", url, "error", err)
		return
	}
	log.Info("preflight: target answered",
		"url", url,
		"status", res.StatusCode,
		"title", res.Title,
		"spaShell", res.SPAShell,
		"elapsed", res.Elapsed.Round(time.Millisecond).String(),
	)
}

// fail is the outer failure handler. It records the error, prints the
// failure line and attempts the failure artifacts, whose own errors are
// swallowed: the page may be unusable by now.
func (r *Runner) fail(ctx context.Context, log *slog.Logger, page engine.Page, report *models.Report, err error) {
	report.Success = false
	report.Error = models.DetailOf(err)

	log.Error("verification failed", "code", report.Error.Code, "error", err)
	fmt.Fprintf(r.out, "Test failed: %v\n", err)

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureArtifactTimeout)
	defer cancel()

	if path := r.cfg.Output.FailureScreenshotPath; path != "" {
		if data, shotErr := page.Screenshot(actx, r.cfg.Output.FullPage); shotErr != nil {
			log.Debug("failure screenshot skipped", "error", shotErr)
		} else if writeErr := utils.OutputFile(path, data); writeErr != nil {
			log.Debug("failure screenshot not written", "path", path, "error", writeErr)
		} else {
			report.FailureScreenshotPath = path
		}
	}

	if path := r.cfg.Output.FailureSnapshotPath; path != "" {
		html, htmlErr := page.HTML(actx)
		if htmlErr != nil {
			log.Debug("failure snapshot skipped", "error", htmlErr)
			return
		}
		doc, convErr := snapshot.Document(html, report.TargetURL, err.Error())
		if convErr != nil {
			log.Debug("failure snapshot skipped", "error", convErr)
			return
		}
		if writeErr := utils.OutputFile(path, doc); writeErr != nil {
			log.Debug("failure snapshot not written", "path", path, "error", writeErr)
			return
		}
		report.FailureSnapshotPath = path
	}
}

// fingerprint stores a SimHash of the page's visible text, best-effort.
func (r *Runner) fingerprint(ctx context.Context, log *slog.Logger, page engine.Page, report *models.Report) {
	fctx, cancel := context.WithTimeout(ctx, r.cfg.Verify.WaitTimeout)
	defer cancel()

	html, err := page.HTML(fctx)
	if err != nil {
		log.Debug("fingerprint skipped", "error", err)
		return
	}
	report.Fingerprint = models.FormatFingerprint(simhash.Fingerprint(snapshot.VisibleText(html)))
}
