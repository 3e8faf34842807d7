package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Target  TargetConfig
	Browser BrowserConfig
	Verify  VerifyConfig
	Output  OutputConfig
	Webhook WebhookConfig
	Fixture FixtureConfig
	Log     LogConfig
}

// TargetConfig describes the application under test.
type TargetConfig struct {
	// URL is the address of the running application.
	URL string // default: "http://localhost:5000"

	// Preflight toggles the HTTP reachability probe before launch.
	Preflight bool // default: true

	// PreflightTimeout bounds the probe request.
	PreflightTimeout time.Duration // default: 5s
}

// BrowserConfig controls the browser driver.
type BrowserConfig struct {
	// Engine selects the driver: "rod" or "playwright".
	Engine string // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional proxy URL for the browser.
	Proxy string

	// Stealth injects the stealth script before navigation (rod only).
	Stealth bool // default: false

	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 720

	// InstallDriver installs the Playwright driver and Chromium before the
	// first run (playwright only).
	InstallDriver bool // default: true
}

// VerifyConfig controls the verification sequence.
type VerifyConfig struct {
	// NavigationTimeout bounds the initial page load.
	NavigationTimeout time.Duration // default: 30s

	// WaitTimeout bounds each wait-for-marker step.
	WaitTimeout time.Duration // default: 30s

	// AssertTimeout is how long the emptiness assertion keeps retrying.
	AssertTimeout time.Duration // default: 5s

	// Repeat runs the whole sequence this many times.
	Repeat int // default: 1

	// RepeatInterval is the minimum spacing between repeated runs.
	RepeatInterval time.Duration // default: 1s

	// StrictExit makes a failed verification exit with status 1.
	StrictExit bool // default: false
}

// OutputConfig controls the artifacts written by a run.
type OutputConfig struct {
	ScreenshotPath        string // default: "/home/jules/verification/upload_screen.png"
	FailureScreenshotPath string // default: "/home/jules/verification/failure.png"

	// FailureSnapshotPath, if set, receives a Markdown rendering of the page
	// when the verification fails.
	FailureSnapshotPath string

	// ReportPath, if set, receives the JSON run report.
	ReportPath string

	// FullPage captures the whole scrollable page instead of the viewport.
	FullPage bool // default: false
}

// WebhookConfig controls result notification.
type WebhookConfig struct {
	URL    string
	Secret string

	// Timeout bounds the whole delivery including retries.
	Timeout time.Duration // default: 45s
}

// FixtureConfig controls the stand-in application server.
type FixtureConfig struct {
	Host        string        // default: "127.0.0.1"
	Port        int           // default: 5000
	Mode        string        // "debug", "release", "test"; default: "release"
	Variant     string        // default: "ok"
	RenderDelay time.Duration // default: 0
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	width, height := envViewportOr("PAGECHECK_VIEWPORT", 1280, 720)

	return &Config{
		Target: TargetConfig{
			URL:              envOr("PAGECHECK_URL", "http://localhost:5000"),
			Preflight:        envBoolOr("PAGECHECK_PREFLIGHT", true),
			PreflightTimeout: envDurationOr("PAGECHECK_PREFLIGHT_TIMEOUT", 5*time.Second),
		},
		Browser: BrowserConfig{
			Engine:         envOr("PAGECHECK_ENGINE", "rod"),
			Headless:       envBoolOr("PAGECHECK_HEADLESS", true),
			NoSandbox:      envBoolOr("PAGECHECK_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("PAGECHECK_BROWSER_BIN"),
			Proxy:          os.Getenv("PAGECHECK_PROXY"),
			Stealth:        envBoolOr("PAGECHECK_STEALTH", false),
			ViewportWidth:  width,
			ViewportHeight: height,
			InstallDriver:  envBoolOr("PAGECHECK_INSTALL_DRIVER", true),
		},
		Verify: VerifyConfig{
			NavigationTimeout: envDurationOr("PAGECHECK_NAV_TIMEOUT", 30*time.Second),
			WaitTimeout:       envDurationOr("PAGECHECK_WAIT_TIMEOUT", 30*time.Second),
			AssertTimeout:     envDurationOr("PAGECHECK_ASSERT_TIMEOUT", 5*time.Second),
			Repeat:            envIntOr("PAGECHECK_REPEAT", 1),
			RepeatInterval:    envDurationOr("PAGECHECK_REPEAT_INTERVAL", time.Second),
			StrictExit:        envBoolOr("PAGECHECK_STRICT_EXIT", false),
		},
		Output: OutputConfig{
			ScreenshotPath:        envOr("PAGECHECK_SCREENSHOT", "/home/jules/verification/upload_screen.png"),
			FailureScreenshotPath: envOr("PAGECHECK_FAILURE_SCREENSHOT", "/home/jules/verification/failure.png"),
			FailureSnapshotPath:   os.Getenv("PAGECHECK_FAILURE_SNAPSHOT"),
			ReportPath:            os.Getenv("PAGECHECK_REPORT"),
			FullPage:              envBoolOr("PAGECHECK_FULL_PAGE", false),
		},
		Webhook: WebhookConfig{
			URL:     os.Getenv("PAGECHECK_WEBHOOK_URL"),
			Secret:  os.Getenv("PAGECHECK_WEBHOOK_SECRET"),
			Timeout: envDurationOr("PAGECHECK_WEBHOOK_TIMEOUT", 45*time.Second),
		},
		Fixture: FixtureConfig{
			Host:        envOr("PAGECHECK_FIXTURE_HOST", "127.0.0.1"),
			Port:        envIntOr("PAGECHECK_FIXTURE_PORT", 5000),
			Mode:        envOr("PAGECHECK_FIXTURE_MODE", "release"),
			Variant:     envOr("PAGECHECK_FIXTURE_VARIANT", "ok"),
			RenderDelay: envDurationOr("PAGECHECK_FIXTURE_DELAY", 0),
		},
		Log: LogConfig{
			Level:  envOr("PAGECHECK_LOG_LEVEL", "info"),
			Format: envOr("PAGECHECK_LOG_FORMAT", "text"),
		},
	}
}

// envViewportOr parses a "WIDTHxHEIGHT" value. Malformed or non-positive
// values fall back to the defaults.
func envViewportOr(key string, fallbackW, fallbackH int) (int, int) {
	v := os.Getenv(key)
	if v == "" {
		return fallbackW, fallbackH
	}
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(v)), "x")
	if !ok {
		return fallbackW, fallbackH
	}
	width, errW := strconv.Atoi(strings.TrimSpace(w))
	height, errH := strconv.Atoi(strings.TrimSpace(h))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return fallbackW, fallbackH
	}
	return width, height
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
