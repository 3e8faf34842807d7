package main

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecheck/config"
	"github.com/use-agent/pagecheck/engine"
)

func callVerify(t *testing.T, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	cfg := config.Load()
	cfg.Target.Preflight = false

	req := mcp.CallToolRequest{}
	req.Params.Name = "verify_upload_screen"
	req.Params.Arguments = args

	res, err := handleVerify(cfg, engine.New)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "want text content, got %T", res.Content[0])
	return tc.Text
}

func TestVerify_UnknownEngine(t *testing.T) {
	res := callVerify(t, map[string]any{"engine": "selenium"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "unknown engine")
}

func TestVerify_InvalidURL(t *testing.T) {
	res := callVerify(t, map[string]any{"url": "ftp://localhost:5000"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "INVALID_PLAN")
}
