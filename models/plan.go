package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
)

// StepType identifies one operation of a verification plan.
type StepType string

const (
	StepNavigate     StepType = "navigate"
	StepWaitText     StepType = "wait_text"
	StepWaitSelector StepType = "wait_selector"
	StepAssertEmpty  StepType = "assert_empty"
	StepScreenshot   StepType = "screenshot"
)

// Markers rendered by the upload screen.
const (
	TitleMarker       = "Assignment Real Generator"
	PromptSelector    = "textarea[placeholder*='Describe the handwriting style']"
	UploadMarker      = "Click or Drag PDF / Image here"
	PromptInputTag    = "textarea"
	UploadScreenTitle = "upload-screen"
)

// Step is a single operation executed against the page.
type Step struct {
	Type StepType `json:"type"`

	// URL is the navigation target (navigate only).
	URL string `json:"url,omitempty"`

	// Text is the text marker to wait for (wait_text only).
	Text string `json:"text,omitempty"`

	// Selector is a CSS selector (wait_selector, assert_empty).
	Selector string `json:"selector,omitempty"`

	// Path is the screenshot destination (screenshot only).
	Path string `json:"path,omitempty"`
}

// Target returns the step's subject for logs and reports.
func (s Step) Target() string {
	switch s.Type {
	case StepNavigate:
		return s.URL
	case StepWaitText:
		return s.Text
	case StepWaitSelector, StepAssertEmpty:
		return s.Selector
	case StepScreenshot:
		return s.Path
	default:
		return ""
	}
}

// Plan is an ordered list of steps executed strictly in sequence.
type Plan struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// UploadScreenPlan returns the verification sequence for the upload screen:
// navigate, wait for the title, the prompt textarea and the upload prompt,
// check the prompt starts empty, then capture a screenshot.
func UploadScreenPlan(targetURL, screenshotPath string) *Plan {
	return &Plan{
		Name: UploadScreenTitle,
		Steps: []Step{
			{Type: StepNavigate, URL: targetURL},
			{Type: StepWaitText, Text: TitleMarker},
			{Type: StepWaitSelector, Selector: PromptSelector},
			{Type: StepWaitText, Text: UploadMarker},
			{Type: StepAssertEmpty, Selector: PromptInputTag},
			{Type: StepScreenshot, Path: screenshotPath},
		},
	}
}

// Validate checks every step before a browser is launched.
func (p *Plan) Validate() error {
	if p == nil || len(p.Steps) == 0 {
		return NewVerifyError(ErrCodeInvalidPlan, "plan has no steps", nil)
	}
	for i, step := range p.Steps {
		if err := validateStep(step); err != nil {
			return NewVerifyError(ErrCodeInvalidPlan, fmt.Sprintf("step %d (%s)", i, step.Type), err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	switch s.Type {
	case StepNavigate:
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", s.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url %q must be http or https", s.URL)
		}
		if u.Host == "" {
			return fmt.Errorf("url %q has no host", s.URL)
		}
	case StepWaitText:
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("text marker is empty")
		}
	case StepWaitSelector, StepAssertEmpty:
		if _, err := cascadia.Compile(s.Selector); err != nil {
			return fmt.Errorf("selector %q: %w", s.Selector, err)
		}
	case StepScreenshot:
		if s.Path == "" {
			return fmt.Errorf("screenshot path is empty")
		}
	default:
		return fmt.Errorf("unknown step type %q", s.Type)
	}
	return nil
}
