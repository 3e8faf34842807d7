package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "http://localhost:5000", cfg.Target.URL)
	assert.True(t, cfg.Target.Preflight)
	assert.Equal(t, "rod", cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Verify.NavigationTimeout)
	assert.Equal(t, 30*time.Second, cfg.Verify.WaitTimeout)
	assert.Equal(t, 5*time.Second, cfg.Verify.AssertTimeout)
	assert.Equal(t, 1, cfg.Verify.Repeat)
	assert.False(t, cfg.Verify.StrictExit)
	assert.Equal(t, "/home/jules/verification/upload_screen.png", cfg.Output.ScreenshotPath)
	assert.Equal(t, "/home/jules/verification/failure.png", cfg.Output.FailureScreenshotPath)
	assert.Empty(t, cfg.Output.ReportPath)
	assert.Empty(t, cfg.Webhook.URL)
	assert.Equal(t, "ok", cfg.Fixture.Variant)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAGECHECK_URL", "http://127.0.0.1:9999")
	t.Setenv("PAGECHECK_ENGINE", "playwright")
	t.Setenv("PAGECHECK_HEADLESS", "false")
	t.Setenv("PAGECHECK_WAIT_TIMEOUT", "750ms")
	t.Setenv("PAGECHECK_REPEAT", "3")
	t.Setenv("PAGECHECK_STRICT_EXIT", "true")
	t.Setenv("PAGECHECK_VIEWPORT", "800X600")
	t.Setenv("PAGECHECK_SCREENSHOT", "/tmp/out.png")

	cfg := Load()

	assert.Equal(t, "http://127.0.0.1:9999", cfg.Target.URL)
	assert.Equal(t, "playwright", cfg.Browser.Engine)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 750*time.Millisecond, cfg.Verify.WaitTimeout)
	assert.Equal(t, 3, cfg.Verify.Repeat)
	assert.True(t, cfg.Verify.StrictExit)
	assert.Equal(t, 800, cfg.Browser.ViewportWidth)
	assert.Equal(t, 600, cfg.Browser.ViewportHeight)
	assert.Equal(t, "/tmp/out.png", cfg.Output.ScreenshotPath)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("PAGECHECK_WAIT_TIMEOUT", "soon")
	t.Setenv("PAGECHECK_REPEAT", "many")
	t.Setenv("PAGECHECK_HEADLESS", "maybe")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.Verify.WaitTimeout)
	assert.Equal(t, 1, cfg.Verify.Repeat)
	assert.True(t, cfg.Browser.Headless)
}

func TestEnvViewportOr(t *testing.T) {
	tests := []struct {
		name  string
		value string
		w, h  int
	}{
		{"unset", "", 1280, 720},
		{"valid", "1024x768", 1024, 768},
		{"spaces", " 640 x 480 ", 640, 480},
		{"missing separator", "1024", 1280, 720},
		{"zero", "0x768", 1280, 720},
		{"negative", "-1x10", 1280, 720},
		{"garbage", "axb", 1280, 720},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PAGECHECK_TEST_VIEWPORT", tt.value)
			w, h := envViewportOr("PAGECHECK_TEST_VIEWPORT", 1280, 720)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}
