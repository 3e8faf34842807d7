package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/use-agent/pagecheck/config"
)

// PlaywrightEngine drives Chromium through the Playwright driver.
//
// Playwright calls are not context-aware; each call gets the time left until
// ctx's deadline as its Playwright timeout instead.
type PlaywrightEngine struct {
	cfg config.BrowserConfig
}

// NewPlaywrightEngine creates a PlaywrightEngine.
func NewPlaywrightEngine(cfg config.BrowserConfig) *PlaywrightEngine {
	return &PlaywrightEngine{cfg: cfg}
}

func (e *PlaywrightEngine) Name() string { return NamePlaywright }

func (e *PlaywrightEngine) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.cfg.InstallDriver && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright driver: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.cfg.Headless),
	}
	if e.cfg.BrowserBin != "" {
		opts.ExecutablePath = playwright.String(e.cfg.BrowserBin)
	}
	if e.cfg.Proxy != "" {
		opts.Proxy = &playwright.Proxy{Server: e.cfg.Proxy}
	}
	if e.cfg.NoSandbox {
		opts.Args = []string{"--no-sandbox"}
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	slog.Debug("browser launched", "engine", NamePlaywright, "version", browser.Version())

	return &pwBrowser{pw: pw, browser: browser}, nil
}

type pwBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser

	closeOnce sync.Once
	closeErr  error
}

func (b *pwBrowser) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pageOpts := playwright.BrowserNewPageOptions{}
	if opts.Width > 0 && opts.Height > 0 {
		pageOpts.Viewport = &playwright.Size{Width: opts.Width, Height: opts.Height}
	}
	page, err := b.browser.NewPage(pageOpts)
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &pwPage{page: page}, nil
}

func (b *pwBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = errors.Join(b.browser.Close(), b.pw.Stop())
		slog.Debug("browser closed", "engine", NamePlaywright)
	})
	return b.closeErr
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Navigate(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMs(ctx),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return translate(ctx, err)
}

// WaitText uses Playwright's unquoted text selector: a case-insensitive
// substring match against rendered text.
func (p *pwPage) WaitText(ctx context.Context, text string) error {
	err := p.page.Locator("text=" + text).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMs(ctx),
	})
	return translate(ctx, err)
}

func (p *pwPage) WaitSelector(ctx context.Context, selector string) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeoutMs(ctx),
	})
	return translate(ctx, err)
}

func (p *pwPage) InputValue(ctx context.Context, selector string) (string, error) {
	v, err := p.page.Locator(selector).First().InputValue(playwright.LocatorInputValueOptions{
		Timeout: timeoutMs(ctx),
	})
	if err != nil {
		return "", translate(ctx, err)
	}
	return v, nil
}

func (p *pwPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := p.page.Content()
	return html, translate(ctx, err)
}

func (p *pwPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  timeoutMs(ctx),
	})
	if err != nil {
		return nil, translate(ctx, err)
	}
	return data, nil
}

// timeoutMs converts ctx's remaining time into a Playwright timeout.
// Zero disables the Playwright timeout, which is what no deadline means.
func timeoutMs(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return playwright.Float(0)
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

// translate maps Playwright timeouts onto context.DeadlineExceeded so callers
// can classify errors the same way for every engine.
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
