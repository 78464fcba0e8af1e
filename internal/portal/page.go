// Package portal describes what the acquisition pipeline needs from a rendered
// eCourts page, independent of the browser driving it.
package portal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrTimeout is returned by waits that did not observe the expected state in time.
var ErrTimeout = errors.New("portal: timed out waiting for selector")

// Page is the page reader capability over the live portal. Selectors are CSS selectors.
//
// note: fault injection point
type Page interface {
	Navigate(ctx context.Context, url string) error

	// WaitReady waits for the selector to exist in the DOM.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// WaitVisible waits for the selector to exist and be rendered.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// WaitHidden waits for the selector to be absent or not rendered.
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error

	Exists(ctx context.Context, selector string) (bool, error)
	Visible(ctx context.Context, selector string) (bool, error)
	// Texts returns the rendered text of every node matching the selector.
	Texts(ctx context.Context, selector string) ([]string, error)
	// HTML returns the outer HTML of the first node matching the selector, or "" when there is none.
	HTML(ctx context.Context, selector string) (string, error)
	// Attribute returns the value of an attribute on the first node matching the selector.
	Attribute(ctx context.Context, selector, name string) (value string, ok bool, err error)

	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	// Screenshot captures the first node matching the selector as a PNG.
	Screenshot(ctx context.Context, selector string) ([]byte, error)

	Cookies(ctx context.Context) ([]*http.Cookie, error)
	// Evaluate runs a script in the page, decoding its result into out when out is not nil.
	Evaluate(ctx context.Context, script string, out any) error
}

// CookieHeader renders cookies as the value of a Cookie request header.
func CookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Text is a convenience for the first match of Texts.
func Text(ctx context.Context, page Page, selector string) (string, error) {
	texts, err := page.Texts(ctx, selector)
	if err != nil || len(texts) == 0 {
		return "", err
	}
	return texts[0], nil
}
