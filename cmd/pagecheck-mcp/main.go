package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/pagecheck/config"
	"github.com/use-agent/pagecheck/engine"
	"github.com/use-agent/pagecheck/runner"
)

var version = "dev"

func main() {
	cfg := config.Load()

	// stdout is the MCP transport; everything else goes to stderr.
	initLogger(cfg.Log)

	s := server.NewMCPServer(
		"pagecheck",
		version,
		server.WithToolCapabilities(false),
	)

	verifyTool := mcp.NewTool("verify_upload_screen",
		mcp.WithDescription("Open the handwriting generator in a headless browser, wait for the upload screen (title, style prompt, upload area), check the style prompt is empty and save a screenshot. Returns the JSON run report."),
		mcp.WithString("url",
			mcp.Description("Address of the running application (default: the configured PAGECHECK_URL)"),
		),
		mcp.WithString("engine",
			mcp.Description("Browser driver: 'rod' (default) or 'playwright'"),
			mcp.Enum(engine.NameRod, engine.NamePlaywright),
		),
	)
	s.AddTool(verifyTool, handleVerify(cfg, engine.New))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// engineFactory matches engine.New.
type engineFactory func(name string, cfg config.BrowserConfig) (engine.Engine, error)

// handleVerify runs one verification per call. Calls are serialised: each
// run owns a browser and the artifact paths are shared.
func handleVerify(base *config.Config, newEngine engineFactory) server.ToolHandlerFunc {
	var mu sync.Mutex

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg := *base
		cfg.Target.URL = request.GetString("url", cfg.Target.URL)
		cfg.Browser.Engine = request.GetString("engine", cfg.Browser.Engine)

		eng, err := newEngine(cfg.Browser.Engine, cfg.Browser)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		mu.Lock()
		defer mu.Unlock()

		report, err := runner.New(eng, &cfg, runner.WithOutput(io.Discard)).Run(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("verification could not run: %v", err)), nil
		}

		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode report: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
