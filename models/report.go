package models

import (
	"fmt"
	"time"
)

// StepResult records the outcome of one executed step.
type StepResult struct {
	Index      int      `json:"index"`
	Type       StepType `json:"type"`
	Target     string   `json:"target,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// LaunchMs is the time spent starting the browser and opening the page.
	LaunchMs int64 `json:"launch_ms"`

	// StepsMs is the time spent executing plan steps.
	StepsMs int64 `json:"steps_ms"`
}

// Report is the result of one verification run.
type Report struct {
	// Success indicates whether every step completed.
	Success bool `json:"success"`

	// RunID identifies the run in webhook events and logs.
	RunID string `json:"run_id"`

	Plan      string `json:"plan"`
	Engine    string `json:"engine"`
	TargetURL string `json:"target_url"`

	// StepsCompleted counts steps that finished without error.
	StepsCompleted int          `json:"steps_completed"`
	Steps          []StepResult `json:"steps"`

	// ScreenshotPath is set when the success screenshot was written.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// FailureScreenshotPath is set when the best-effort failure screenshot
	// was written.
	FailureScreenshotPath string `json:"failure_screenshot_path,omitempty"`

	// FailureSnapshotPath is set when the Markdown page snapshot was written.
	FailureSnapshotPath string `json:"failure_snapshot_path,omitempty"`

	// Fingerprint is a SimHash of the page's visible text at capture time,
	// hex encoded. Empty when it could not be computed.
	Fingerprint string `json:"fingerprint,omitempty"`

	Timing    TimingInfo   `json:"timing"`
	StartedAt time.Time    `json:"started_at"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// FormatFingerprint renders a SimHash value the way reports store it.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// ParseFingerprint is the inverse of FormatFingerprint.
func ParseFingerprint(s string) (uint64, bool) {
	var fp uint64
	if _, err := fmt.Sscanf(s, "%x", &fp); err != nil {
		return 0, false
	}
	return fp, true
}

// EventType returns the webhook event name for the report outcome.
func (r *Report) EventType() string {
	if r.Success {
		return "verification.passed"
	}
	return "verification.failed"
}

// ErrorCode returns the report's error code, or "" on success.
func (r *Report) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}
