// Package fixture serves a stand-in for the application under test: the
// upload screen with the markers the verification waits for, plus broken
// variants for exercising the failure paths.
package fixture

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecheck/models"
)

// Variant selects which version of the upload screen is served.
type Variant string

const (
	VariantOK            Variant = "ok"
	VariantMissingTitle  Variant = "missing-title"
	VariantMissingPrompt Variant = "missing-prompt"
	VariantMissingUpload Variant = "missing-upload"
	VariantPrefilled     Variant = "prefilled"
)

// Variants lists every accepted variant.
var Variants = []Variant{VariantOK, VariantMissingTitle, VariantMissingPrompt, VariantMissingUpload, VariantPrefilled}

// PrefilledPrompt is the textarea content of the prefilled variant.
const PrefilledPrompt = "neat cursive, blue ink"

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown fixture variant %q (want one of %v)", s, Variants)
}

// Options configures the fixture server.
type Options struct {
	Variant Variant

	// RenderDelay defers the markers: the page ships an empty mount point
	// and inserts the screen client-side after the delay.
	RenderDelay time.Duration

	// Mode is the gin mode: "debug", "release" or "test".
	Mode string
}

// NewRouter creates a configured Gin engine serving the upload screen.
func NewRouter(opts Options) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Variant == "" {
		opts.Variant = VariantOK
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.SetHTMLTemplate(pageTemplate)

	startTime := time.Now()
	r.GET("/", uploadScreen(opts))
	r.GET("/healthz", health(opts.Variant, startTime))

	return r
}

type screenData struct {
	ShowTitle  bool
	ShowPrompt bool
	ShowUpload bool
	Prefill    string
	Deferred   bool
	DelayMs    int64
}

func uploadScreen(opts Options) gin.HandlerFunc {
	data := screenData{
		ShowTitle:  opts.Variant != VariantMissingTitle,
		ShowPrompt: opts.Variant != VariantMissingPrompt,
		ShowUpload: opts.Variant != VariantMissingUpload,
		Deferred:   opts.RenderDelay > 0,
		DelayMs:    opts.RenderDelay.Milliseconds(),
	}
	if opts.Variant == VariantPrefilled {
		data.Prefill = PrefilledPrompt
	}

	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.HTML(http.StatusOK, "page", data)
	}
}

func health(variant Variant, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"variant": variant,
			"uptime":  time.Since(startTime).Round(time.Second).String(),
		})
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Assignify</title>
<style>
  body { font-family: sans-serif; background: #f5f5f0; margin: 0; }
  .app { max-width: 720px; margin: 48px auto; display: flex; flex-direction: column; gap: 24px; }
  textarea { min-height: 96px; padding: 12px; font-size: 15px; }
  .dropzone { border: 2px dashed #999; border-radius: 12px; padding: 48px; text-align: center; cursor: pointer; }
</style>
</head>
<body>
{{if .Deferred}}<div id="root"></div>
<template id="screen">{{template "screen" .}}</template>
<script>
  setTimeout(function () {
    var tpl = document.getElementById("screen");
    document.getElementById("root").appendChild(tpl.content.cloneNode(true));
  }, {{.DelayMs}});
</script>
{{else}}<div id="root">{{template "screen" .}}</div>
{{end}}</body>
</html>
{{define "screen"}}<main class="app">
  {{if .ShowTitle}}<h1>` + models.TitleMarker + `</h1>{{end}}
  {{if .ShowPrompt}}<textarea id="style-prompt" placeholder="Describe the handwriting style (e.g. messy student, neat cursive, blue ink)">{{.Prefill}}</textarea>{{end}}
  {{if .ShowUpload}}<label class="dropzone"><input type="file" accept="application/pdf,image/*" hidden><span>` + models.UploadMarker + `</span></label>{{end}}
</main>{{end}}`))
