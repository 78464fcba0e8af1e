package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ecourts-backend/internal/portal"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

var _ portal.Page = (*Session)(nil)

const actionTimeout = 15 * time.Second

// run executes actions against the browser, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", portal.ErrTimeout, err)
	}
	return err
}

func quote(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func (s *Session) eval(ctx context.Context, script string, out any) error {
	return s.run(ctx, actionTimeout, chromedp.Evaluate(script, out))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.navigationTimeout, chromedp.Navigate(url))
}

func (s *Session) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *Session) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := s.Visible(ctx, selector)
		if err != nil {
			return err
		}
		if !visible {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s still visible after %s", portal.ErrTimeout, selector, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	err := s.eval(ctx, fmt.Sprintf(`document.querySelector(%s) !== null`, quote(selector)), &exists)
	return exists, err
}

func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const e = document.querySelector(%s);
		if (!e) return false;
		const style = window.getComputedStyle(e);
		return style.display !== "none" && style.visibility !== "hidden" && e.getClientRects().length > 0;
	})()`, quote(selector))
	var visible bool
	err := s.eval(ctx, script, &visible)
	return visible, err
}

func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	err := s.eval(
		ctx,
		fmt.Sprintf(`Array.from(document.querySelectorAll(%s), (e) => e.innerText || "")`, quote(selector)),
		&texts,
	)
	return texts, err
}

func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := s.eval(
		ctx,
		fmt.Sprintf(`(document.querySelector(%s) || { outerHTML: "" }).outerHTML`, quote(selector)),
		&html,
	)
	return html, err
}

func (s *Session) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	script := fmt.Sprintf(`(() => {
		const e = document.querySelector(%s);
		if (!e || !e.hasAttribute(%s)) return null;
		return e.getAttribute(%s);
	})()`, quote(selector), quote(name), quote(name))
	var value *string
	err := s.eval(ctx, script, &value)
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, actionTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *Session) Type(ctx context.Context, selector, text string) error {
	return s.run(
		ctx, actionTimeout,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (s *Session) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, actionTimeout, chromedp.Screenshot(selector, &buf, chromedp.ByQuery, chromedp.NodeVisible))
	return buf, err
}

func (s *Session) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	err := s.eval(ctx, script, out)
	if errors.Is(err, chromedp.ErrJSUndefined) || errors.Is(err, chromedp.ErrJSNull) {
		return nil
	}
	return err
}
