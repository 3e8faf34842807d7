package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/use-agent/pagecheck/engine"
	"github.com/use-agent/pagecheck/models"
)

// fakeEngine is an in-memory engine. Every launch hands out a fresh
// fakeBrowser whose page is produced by newPage.
type fakeEngine struct {
	launchErr error
	pageErr   error
	newPage   func() *fakePage

	mu       sync.Mutex
	browsers []*fakeBrowser
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Launch(ctx context.Context) (engine.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	b := &fakeBrowser{pageErr: e.pageErr, page: e.newPage()}
	e.mu.Lock()
	e.browsers = append(e.browsers, b)
	e.mu.Unlock()
	return b, nil
}

type fakeBrowser struct {
	pageErr error
	page    *fakePage
	closes  atomic.Int32
}

func (b *fakeBrowser) NewPage(_ context.Context, _ engine.PageOptions) (engine.Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closes.Add(1)
	return nil
}

// fakePage renders a fixed screen. Missing markers block until the step
// deadline, like a real wait would.
type fakePage struct {
	navErr   error
	texts    map[string]bool
	selector map[string]bool

	// values is returned by successive InputValue calls; the last entry
	// repeats. valueErr, when set, is returned instead.
	values   []string
	valueErr error
	reads    int

	html string

	// shotErrs is consumed by successive Screenshot calls.
	shotErrs []error
	shots    int

	visited []string
}

// newOKPage returns a page showing every upload screen marker with an
// empty prompt.
func newOKPage() *fakePage {
	return &fakePage{
		texts:    map[string]bool{models.TitleMarker: true, models.UploadMarker: true},
		selector: map[string]bool{models.PromptSelector: true},
		values:   []string{""},
		html:     "<html><body><h1>Assignment Real Generator</h1><p>Click or Drag PDF / Image here</p></body></html>",
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.visited = append(p.visited, url)
	if p.navErr != nil {
		return p.navErr
	}
	return ctx.Err()
}

func (p *fakePage) WaitText(ctx context.Context, text string) error {
	if p.texts[text] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) WaitSelector(ctx context.Context, selector string) error {
	if p.selector[selector] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) InputValue(_ context.Context, _ string) (string, error) {
	if p.valueErr != nil {
		return "", p.valueErr
	}
	i := p.reads
	if i >= len(p.values) {
		i = len(p.values) - 1
	}
	p.reads++
	return p.values[i], nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.html == "" {
		return "", errors.New("no document")
	}
	return p.html, ctx.Err()
}

func (p *fakePage) Screenshot(_ context.Context, _ bool) ([]byte, error) {
	i := p.shots
	p.shots++
	if i < len(p.shotErrs) && p.shotErrs[i] != nil {
		return nil, p.shotErrs[i]
	}
	return []byte("\x89PNG fake"), nil
}
