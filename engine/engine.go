package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/pagecheck/config"
)

// Engine is the interface that all browser drivers must implement.
type Engine interface {
	// Name returns the driver identifier (e.g. "rod", "playwright").
	Name() string

	// Launch starts a browser process.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser process.
type Browser interface {
	// NewPage opens a tab.
	NewPage(ctx context.Context, opts PageOptions) (Page, error)

	// Close shuts the browser down and releases its pages. Only the first
	// call has an effect.
	Close() error
}

// Page is one browser tab. All blocking methods honor ctx's deadline and
// report an expired deadline as an error wrapping context.DeadlineExceeded.
type Page interface {
	// Navigate loads url and blocks until the load event.
	Navigate(ctx context.Context, url string) error

	// WaitText blocks until text is rendered somewhere in the page.
	WaitText(ctx context.Context, text string) error

	// WaitSelector blocks until an element matches the CSS selector.
	WaitSelector(ctx context.Context, selector string) error

	// InputValue returns the value of the first element matching selector.
	InputValue(ctx context.Context, selector string) (string, error)

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// Screenshot captures the viewport, or the whole page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// PageOptions configures a new tab.
type PageOptions struct {
	Width  int
	Height int
}

// Driver names accepted by New.
const (
	NameRod        = "rod"
	NamePlaywright = "playwright"
)

// New returns the driver selected by name.
func New(name string, cfg config.BrowserConfig) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameRod, "":
		return NewRodEngine(cfg), nil
	case NamePlaywright:
		return NewPlaywrightEngine(cfg), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want %q or %q)", name, NameRod, NamePlaywright)
	}
}
