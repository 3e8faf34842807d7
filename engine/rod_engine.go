package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pagecheck/config"
	"github.com/ysmood/gson"
)

// RodEngine drives a local Chromium through the DevTools protocol.
type RodEngine struct {
	cfg config.BrowserConfig
}

// NewRodEngine creates a RodEngine.
func NewRodEngine(cfg config.BrowserConfig) *RodEngine {
	return &RodEngine{cfg: cfg}
}

func (e *RodEngine) Name() string { return NameRod }

// Launch starts Chromium and connects to it. The launcher is kept so Close
// can kill the process and remove its profile directory.
func (e *RodEngine) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)

	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}
	if e.cfg.Proxy != "" {
		l = l.Proxy(e.cfg.Proxy)
	}

	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	if e.cfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	slog.Debug("browser launched", "engine", NameRod, "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	return &rodBrowser{
		browser:  browser,
		launcher: l,
		stealth:  e.cfg.Stealth,
	}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	stealth  bool

	closeOnce sync.Once
	closeErr  error
}

func (b *rodBrowser) NewPage(ctx context.Context, opts PageOptions) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	// Drop the creation context so later calls only see per-step deadlines.
	page = page.Context(context.Background())

	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}

	// Stealth JS only applies to documents created after it is installed,
	// so it must precede the first navigation.
	if b.stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	return &rodPage{page: page}, nil
}

// Close closes the browser over CDP, then makes sure the process is gone.
func (b *rodBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.browser.Close()
		b.launcher.Kill()
		b.launcher.Cleanup()
		slog.Debug("browser closed", "engine", NameRod)
	})
	return b.closeErr
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// WaitText waits for a visible element whose text contains text, compared
// case-insensitively.
func (p *rodPage) WaitText(ctx context.Context, text string) error {
	page := p.page.Context(ctx)
	el, err := page.ElementR("body *", textPattern(text))
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) WaitSelector(ctx context.Context, selector string) error {
	page := p.page.Context(ctx)
	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

func (p *rodPage) InputValue(ctx context.Context, selector string) (string, error) {
	page := p.page.Context(ctx)
	el, err := page.Element(selector)
	if err != nil {
		return "", err
	}
	v, err := el.Property("value")
	if err != nil {
		return "", fmt.Errorf("read value of %q: %w", selector, err)
	}
	return jsonString(v), nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// jsonString reads a JS property as a string; null and undefined read as "".
func jsonString(v gson.JSON) string {
	if v.Nil() {
		return ""
	}
	return v.Str()
}

// textPattern builds the JS regex literal ElementR expects.
func textPattern(text string) string {
	return "/" + regexp.QuoteMeta(text) + "/i"
}
