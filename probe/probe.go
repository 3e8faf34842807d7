// Package probe checks that the application under test answers HTTP before a
// browser is spent on it.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tls "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps how much of the response is read.
const maxBody = 10 << 20

// Result describes what the target served.
type Result struct {
	StatusCode  int
	ContentType string
	Title       string

	// SPAShell is true when the document has an empty mount point and no
	// visible text, i.e. the markers can only appear after scripts run.
	SPAShell bool

	Elapsed time.Duration
}

// Prober performs preflight requests. The zero value is not usable; call New.
type Prober struct {
	client *http.Client
}

// chromeH1Spec is a Chrome ClientHello with ALPN restricted to http/1.1,
// because net/http cannot speak h2 over a utls connection.
var chromeH1Spec *tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = &spec
}

// New creates a Prober. HTTPS targets are dialed with a Chrome TLS
// fingerprint.
func New() *Prober {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	return &Prober{client: &http.Client{Transport: transport}}
}

func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)

	var tlsConn *tls.UConn
	if chromeH1Spec != nil {
		tlsConn = tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
		if err := tlsConn.ApplyPreset(chromeH1Spec); err != nil {
			conn.Close()
			return nil, fmt.Errorf("probe: apply tls spec: %w", err)
		}
	} else {
		tlsConn = tls.UClient(conn, &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, tls.HelloGolang)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// Check issues one GET against url and summarises the response. Any HTTP
// status is a successful probe; only transport failures return an error.
func (p *Prober) Check(ctx context.Context, url string) (*Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("probe: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("probe: read body: %w", err)
	}

	res := &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Elapsed:     time.Since(start),
	}
	if isHTML(res.ContentType) {
		res.Title, res.SPAShell = inspect(body)
	}
	return res, nil
}

func isHTML(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// mountPoints are the root containers the common SPA toolchains render into.
var mountPoints = []string{"#root", "#app", "#__next", "#__nuxt"}

// inspect extracts the document title and decides whether the body is an
// un-rendered SPA shell.
func inspect(body []byte) (title string, spaShell bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	bodySel := doc.Find("body").Clone()
	bodySel.Find("script, style, noscript, template").Remove()
	visible := strings.TrimSpace(bodySel.Text())

	for _, sel := range mountPoints {
		mount := doc.Find(sel)
		if mount.Length() > 0 && mount.Children().Length() == 0 && visible == "" {
			return title, true
		}
	}
	return title, false
}
