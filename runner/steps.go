package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/utils"
	"github.com/use-agent/pagecheck/engine"
	"github.com/use-agent/pagecheck/models"
)

// assertPollInterval is how often the emptiness assertion re-reads the value.
const assertPollInterval = 100 * time.Millisecond

// executeSteps runs the plan's steps strictly in order. The first failing
// step stops the run; its error says which step failed and how many
// completed before it.
func (r *Runner) executeSteps(ctx context.Context, log *slog.Logger, page engine.Page, report *models.Report) error {
	for i, step := range r.plan.Steps {
		started := time.Now()
		err := r.executeStep(ctx, page, step)

		result := models.StepResult{
			Index:      i,
			Type:       step.Type,
			Target:     step.Target(),
			DurationMs: time.Since(started).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			report.Steps = append(report.Steps, result)
			return fmt.Errorf("step %d (%s) failed after %d completed: %w", i, step.Type, i, err)
		}
		report.Steps = append(report.Steps, result)
		report.StepsCompleted++

		if step.Type == models.StepScreenshot {
			report.ScreenshotPath = step.Path
			fmt.Fprintf(r.out, "Screenshot saved to %s\n", step.Path)
		}
		log.Debug("step completed", "index", i, "type", step.Type, "target", result.Target, "ms", result.DurationMs)
	}
	return nil
}

// executeStep dispatches one step under its own deadline.
func (r *Runner) executeStep(ctx context.Context, page engine.Page, step models.Step) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout(step.Type))
	defer cancel()

	switch step.Type {
	case models.StepNavigate:
		if err := page.Navigate(stepCtx, step.URL); err != nil {
			return models.Categorize(err, models.ErrCodeNavigation, "navigation to target URL failed")
		}
		return nil
	case models.StepWaitText:
		if err := page.WaitText(stepCtx, step.Text); err != nil {
			return models.Categorize(err, models.ErrCodePage, fmt.Sprintf("text %q did not appear", step.Text))
		}
		return nil
	case models.StepWaitSelector:
		if err := page.WaitSelector(stepCtx, step.Selector); err != nil {
			return models.Categorize(err, models.ErrCodePage, fmt.Sprintf("selector %q did not match", step.Selector))
		}
		return nil
	case models.StepAssertEmpty:
		return assertEmpty(stepCtx, page, step.Selector)
	case models.StepScreenshot:
		return r.capture(stepCtx, page, step.Path)
	default:
		return models.NewVerifyError(models.ErrCodeInvalidPlan, fmt.Sprintf("unknown step type %q", step.Type), nil)
	}
}

func (r *Runner) stepTimeout(t models.StepType) time.Duration {
	switch t {
	case models.StepNavigate:
		return r.cfg.Verify.NavigationTimeout
	case models.StepAssertEmpty:
		return r.cfg.Verify.AssertTimeout
	default:
		return r.cfg.Verify.WaitTimeout
	}
}

// assertEmpty re-reads the value of the first element matching selector
// until it is empty or ctx expires.
func assertEmpty(ctx context.Context, page engine.Page, selector string) error {
	ticker := time.NewTicker(assertPollInterval)
	defer ticker.Stop()

	var (
		lastValue string
		lastErr   error
		readOnce  bool
	)
	for {
		v, err := page.InputValue(ctx, selector)
		if err == nil {
			if v == "" {
				return nil
			}
			lastValue, readOnce = v, true
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if !readOnce {
				return models.NewVerifyError(models.ErrCodeAssertion,
					fmt.Sprintf("could not read value of %q", selector), lastErr)
			}
			return models.NewVerifyError(models.ErrCodeAssertion,
				fmt.Sprintf("expected %q to be empty, got %q", selector, lastValue), nil)
		case <-ticker.C:
		}
	}
}

// capture takes a screenshot and writes it to path, creating parent
// directories and overwriting any existing file.
func (r *Runner) capture(ctx context.Context, page engine.Page, path string) error {
	data, err := page.Screenshot(ctx, r.cfg.Output.FullPage)
	if err != nil {
		return models.Categorize(err, models.ErrCodeScreenshot, "failed to capture screenshot")
	}
	if err := utils.OutputFile(path, data); err != nil {
		return models.NewVerifyError(models.ErrCodeScreenshot, "failed to write screenshot", err)
	}
	return nil
}
