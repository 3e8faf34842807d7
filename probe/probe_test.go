package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, contentType, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Chrome")
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck_SPAShell(t *testing.T) {
	srv := serve(t, "text/html; charset=utf-8", `<!doctype html>
<html><head><title>Assignment Real Generator</title></head>
<body><div id="root"></div><script type="module" src="/index.tsx"></script></body></html>`, http.StatusOK)

	res, err := New().Check(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Assignment Real Generator", res.Title)
	assert.True(t, res.SPAShell)
	assert.Greater(t, res.Elapsed, time.Duration(0))
}

func TestCheck_ServerRendered(t *testing.T) {
	srv := serve(t, "text/html", `<html><head><title>Upload</title></head>
<body><div id="root"><h1>Assignment Real Generator</h1></div></body></html>`, http.StatusOK)

	res, err := New().Check(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Upload", res.Title)
	assert.False(t, res.SPAShell)
}

func TestCheck_NonHTML(t *testing.T) {
	srv := serve(t, "application/json", `{"status":"ok"}`, http.StatusServiceUnavailable)

	res, err := New().Check(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Empty(t, res.Title)
	assert.False(t, res.SPAShell)
}

func TestCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New().Check(ctx, url)
	assert.Error(t, err)
}

func TestCheck_BadURL(t *testing.T) {
	_, err := New().Check(context.Background(), "http://[::1")
	assert.Error(t, err)
}
