// Package portaltest provides an in-memory portal.Page for tests.
package portaltest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"ecourts-backend/internal/portal"

	"github.com/PuerkitoBio/goquery"
)

var _ portal.Page = (*Page)(nil)

// Page implements portal.Page over a static HTML document. Waits never block,
// they succeed or fail immediately based on the current document.
type Page struct {
	mu     sync.Mutex
	doc    *goquery.Document
	hidden map[string]bool

	// OnNavigate is called on every navigation, it may swap the document.
	OnNavigate func(p *Page, url string) error
	// OnClick maps an exact selector to the effect of clicking it.
	OnClick map[string]func(p *Page) error
	// OnEvaluate receives every script, it may decode a result into out.
	OnEvaluate func(p *Page, script string, out any) error

	ScreenshotData []byte
	CookieJar      []*http.Cookie

	Navigations []string
	Clicks      []string
	Typed       map[string]string
	Scripts     []string
}

func New(html string) *Page {
	p := &Page{
		hidden:         map[string]bool{},
		OnClick:        map[string]func(p *Page) error{},
		Typed:          map[string]string{},
		ScreenshotData: []byte("\x89PNG fake"),
	}
	p.SetHTML(html)
	return p
}

// SetHTML replaces the current document.
func (p *Page) SetHTML(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
}

// Hide marks a selector as present but not rendered.
func (p *Page) Hide(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden[selector] = true
}

func (p *Page) Show(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.hidden, selector)
}

func (p *Page) find(selector string) *goquery.Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector)
}

func (p *Page) isHidden(selector string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hidden[selector]
}

func (p *Page) timeout(selector, state string) error {
	return fmt.Errorf("%w: %s never became %s", portal.ErrTimeout, selector, state)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	hook := p.OnNavigate
	p.mu.Unlock()
	if hook != nil {
		return hook(p, url)
	}
	return nil
}

func (p *Page) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	if p.find(selector).Length() == 0 {
		return p.timeout(selector, "ready")
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	visible, _ := p.Visible(ctx, selector)
	if !visible {
		return p.timeout(selector, "visible")
	}
	return nil
}

func (p *Page) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	visible, _ := p.Visible(ctx, selector)
	if visible {
		return p.timeout(selector, "hidden")
	}
	return nil
}

func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	return p.find(selector).Length() > 0, nil
}

func (p *Page) Visible(ctx context.Context, selector string) (bool, error) {
	return p.find(selector).Length() > 0 && !p.isHidden(selector), nil
}

func (p *Page) Texts(ctx context.Context, selector string) ([]string, error) {
	var out []string
	p.find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out, nil
}

func (p *Page) HTML(ctx context.Context, selector string) (string, error) {
	sel := p.find(selector).First()
	if sel.Length() == 0 {
		return "", nil
	}
	return goquery.OuterHtml(sel)
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	value, ok := p.find(selector).First().Attr(name)
	return value, ok, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.Clicks = append(p.Clicks, selector)
	hook := p.OnClick[selector]
	p.mu.Unlock()

	if p.find(selector).Length() == 0 {
		return p.timeout(selector, "clickable")
	}
	if hook != nil {
		return hook(p)
	}
	return nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	if p.find(selector).Length() == 0 {
		return p.timeout(selector, "typeable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Typed[selector] = text
	return nil
}

func (p *Page) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	if p.find(selector).Length() == 0 {
		return nil, p.timeout(selector, "visible")
	}
	return p.ScreenshotData, nil
}

func (p *Page) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	return p.CookieJar, nil
}

func (p *Page) Evaluate(ctx context.Context, script string, out any) error {
	p.mu.Lock()
	p.Scripts = append(p.Scripts, script)
	hook := p.OnEvaluate
	p.mu.Unlock()
	if hook != nil {
		return hook(p, script, out)
	}
	if out != nil {
		return json.Unmarshal([]byte("null"), out)
	}
	return nil
}

// ClickCount returns how many times the selector was clicked.
func (p *Page) ClickCount(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Clicks {
		if c == selector {
			n++
		}
	}
	return n
}
