package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/utils"
	"github.com/use-agent/pagecheck/models"
	"github.com/use-agent/pagecheck/simhash"
	"golang.org/x/time/rate"
)

// Summary aggregates the reports of a repeated verification.
type Summary struct {
	Reports []*models.Report `json:"reports"`

	// Consistent is true when every pass ended the same way: same outcome,
	// same error code and, for passes that produced one, near-identical
	// page fingerprints.
	Consistent bool `json:"consistent"`
}

// Passed reports whether every pass succeeded.
func (s *Summary) Passed() bool {
	if len(s.Reports) == 0 {
		return false
	}
	for _, r := range s.Reports {
		if !r.Success {
			return false
		}
	}
	return true
}

// Last returns the final report, or nil when no pass ran.
func (s *Summary) Last() *models.Report {
	if len(s.Reports) == 0 {
		return nil
	}
	return s.Reports[len(s.Reports)-1]
}

// RunRepeated executes n independent passes, each with its own browser,
// starting at most one pass per interval. A fatal error (invalid plan,
// launch or page-open failure) or a cancelled ctx stops the series and is
// returned together with the reports collected so far.
func (r *Runner) RunRepeated(ctx context.Context, n int, interval time.Duration) (*Summary, error) {
	if n < 1 {
		n = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	summary := &Summary{Reports: make([]*models.Report, 0, n)}
	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			summary.Consistent = consistent(summary.Reports)
			return summary, fmt.Errorf("repeat stopped before pass %d: %w", i+1, err)
		}

		report, err := r.Run(ctx)
		if err != nil {
			summary.Consistent = consistent(summary.Reports)
			return summary, fmt.Errorf("pass %d: %w", i+1, err)
		}
		summary.Reports = append(summary.Reports, report)
		slog.Debug("repeat pass finished", "pass", i+1, "of", n, "success", report.Success)
	}

	summary.Consistent = consistent(summary.Reports)
	if !summary.Consistent {
		slog.Warn("verification outcome is not stable across passes", "passes", n)
	}
	return summary, nil
}

// consistent compares every report against the first one.
func consistent(reports []*models.Report) bool {
	if len(reports) == 0 {
		return false
	}
	first := reports[0]
	for _, rep := range reports[1:] {
		if rep.Success != first.Success || rep.ErrorCode() != first.ErrorCode() {
			return false
		}
		if !similarFingerprints(first.Fingerprint, rep.Fingerprint) {
			return false
		}
	}
	return true
}

// similarFingerprints treats a missing or unparseable fingerprint as
// "no opinion".
func similarFingerprints(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	fa, okA := models.ParseFingerprint(a)
	fb, okB := models.ParseFingerprint(b)
	if !okA || !okB {
		return true
	}
	return simhash.Similar(fa, fb, simhash.DefaultThreshold)
}

// WriteReport writes v as indented JSON to path, creating parent directories.
func WriteReport(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := utils.OutputFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
