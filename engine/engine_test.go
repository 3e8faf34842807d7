package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecheck/config"
	"github.com/ysmood/gson"
)

func TestNew(t *testing.T) {
	cfg := config.BrowserConfig{Headless: true}

	tests := []struct {
		name string
		want string
	}{
		{"", NameRod},
		{"rod", NameRod},
		{" ROD ", NameRod},
		{"playwright", NamePlaywright},
		{"Playwright", NamePlaywright},
	}
	for _, tt := range tests {
		e, err := New(tt.name, cfg)
		require.NoError(t, err, "name %q", tt.name)
		assert.Equal(t, tt.want, e.Name())
	}

	_, err := New("chromedp", cfg)
	assert.Error(t, err)
}

func TestLaunch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, e := range []Engine{NewRodEngine(config.BrowserConfig{}), NewPlaywrightEngine(config.BrowserConfig{})} {
		_, err := e.Launch(ctx)
		assert.ErrorIs(t, err, context.Canceled, e.Name())
	}
}

func TestTextPattern(t *testing.T) {
	assert.Equal(t, `/Assignment Real Generator/i`, textPattern("Assignment Real Generator"))
	assert.Equal(t, `/Click or Drag PDF / Image here/i`, textPattern("Click or Drag PDF / Image here"))
	assert.Equal(t, `/1\+1 \(two\)/i`, textPattern("1+1 (two)"))
}

func TestJSONString(t *testing.T) {
	assert.Equal(t, "", jsonString(gson.New(nil)))
	assert.Equal(t, "", jsonString(gson.New("")))
	assert.Equal(t, "hello", jsonString(gson.New("hello")))
}

func TestTimeoutMs(t *testing.T) {
	assert.Equal(t, 0.0, *timeoutMs(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms := *timeoutMs(ctx)
	assert.Greater(t, ms, 1000.0)
	assert.LessOrEqual(t, ms, 2000.0)

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, 1.0, *timeoutMs(expired))
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, translate(ctx, nil))

	err := translate(ctx, fmt.Errorf("locator.waitFor: %w", playwright.ErrTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	plain := errors.New("target closed")
	assert.Same(t, plain, translate(ctx, plain))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, translate(canceled, plain), context.Canceled)
}
