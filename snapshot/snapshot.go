// Package snapshot turns a rendered page into artifacts a human can read
// after a failed run: Markdown for the document and plain visible text.
package snapshot

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// conv is goroutine-safe and reused across calls.
var conv = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// Markdown converts rendered HTML to Markdown. Relative links and images are
// resolved against baseURL.
//
// The base plugin drops form controls, so a textarea's content never shows
// up here; the run report carries the value that failed the assertion.
func Markdown(htmlContent, baseURL string) (string, error) {
	md, err := conv.ConvertString(htmlContent, converter.WithDomain(baseURL))
	if err != nil {
		return "", fmt.Errorf("snapshot: convert to markdown: %w", err)
	}
	return md, nil
}

// Document renders the Markdown snapshot file: a short header followed by
// the converted page.
func Document(htmlContent, pageURL, reason string) (string, error) {
	md, err := Markdown(htmlContent, pageURL)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- url: %s -->\n", pageURL)
	if reason != "" {
		fmt.Fprintf(&b, "<!-- failure: %s -->\n", strings.ReplaceAll(reason, "--", "- -"))
	}
	b.WriteString("\n")
	b.WriteString(md)
	if !strings.HasSuffix(md, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

// VisibleText extracts the text inside <body>, skipping script, style and
// noscript content. Words are separated by single spaces.
func VisibleText(htmlContent string) string {
	tokenizer := html.NewTokenizer(bytes.NewReader([]byte(htmlContent)))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = true
			case "script", "style", "noscript", "template":
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "body":
				inBody = false
			case "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if !inBody || skipDepth > 0 {
				continue
			}
			for _, w := range strings.Fields(string(tokenizer.Text())) {
				buf.WriteString(w)
				buf.WriteByte(' ')
			}
		}
	}
}
