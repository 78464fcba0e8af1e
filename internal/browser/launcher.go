// Package browser drives a headless Chrome through chromedp as a portal.Page.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ecourts-backend/internal/proxychain"
	"ecourts-backend/internal/telemetry"

	"github.com/chromedp/chromedp"
)

const (
	report_launcher_open = "launcher.open"
	report_session_close = "session.close"
)

// Launcher opens browser sessions. The zero value is usable but opens a
// headless browser with the default viewport.
type Launcher struct {
	ExecPath string
	Headed   bool
	Width    int64
	Height   int64
	Scale    float64
	// NavigationTimeout bounds every Navigate call.
	NavigationTimeout time.Duration
	UserAgent         string

	Tel telemetry.API
}

func (l Launcher) withDefaults() Launcher {
	if l.Width == 0 {
		l.Width = 1280
	}
	if l.Height == 0 {
		l.Height = 800
	}
	if l.Scale == 0 {
		l.Scale = 2
	}
	if l.NavigationTimeout == 0 {
		l.NavigationTimeout = 60 * time.Second
	}
	if l.Tel == nil {
		l.Tel = telemetry.SlogAPI{}
	}
	return l
}

// Open starts a browser egressing through the given upstream proxy endpoint.
// An empty endpoint starts the browser without a proxy.
func (l Launcher) Open(ctx context.Context, proxyEndpoint string) (*Session, error) {
	l = l.withDefaults()
	tel := telemetry.NewScopedAPI("browser", l.Tel)

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !l.Headed),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(int(l.Width), int(l.Height)),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	if l.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.UserAgent))
	}

	var local *proxychain.Server
	if proxyEndpoint != "" {
		var err error
		local, err = proxychain.Anonymize(proxyEndpoint)
		if err != nil {
			tel.ReportBroken(report_launcher_open, fmt.Errorf("anonymize proxy: %w", err))
			return nil, fmt.Errorf("anonymize proxy: %w", err)
		}
		opts = append(opts, chromedp.ProxyServer(local.URL()))
	}

	// the browser outlives the caller's request scoped deadlines, it is
	// torn down by Session.Close instead
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:               browserCtx,
		navigationTimeout: l.NavigationTimeout,
		tel:               tel,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		proxy: local,
	}

	// the first Run starts chrome under browserCtx, so it must not carry a
	// deadline of its own
	err := startWithin(ctx, l.NavigationTimeout, s.cancel, func() error {
		return chromedp.Run(
			browserCtx,
			chromedp.EmulateViewport(l.Width, l.Height, chromedp.EmulateScale(l.Scale)),
		)
	})
	if err != nil {
		s.Close()
		tel.ReportBroken(report_launcher_open, err)
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// startWithin runs start, calling teardown when it takes longer than timeout or
// ctx ends first. Nothing is torn down once start has returned successfully.
func startWithin(ctx context.Context, timeout time.Duration, teardown func(), start func() error) error {
	watchdog := time.AfterFunc(timeout, teardown)
	stopOnCancel := context.AfterFunc(ctx, teardown)

	err := start()
	fired := !watchdog.Stop()
	canceled := !stopOnCancel()

	switch {
	case fired:
		if err == nil {
			err = context.DeadlineExceeded
		}
		return fmt.Errorf("browser did not start within %s: %w", timeout, err)
	case canceled:
		if err == nil {
			err = ctx.Err()
		}
		return err
	}
	return err
}

// Session is one browser instance plus the local proxy it egresses through.
type Session struct {
	ctx               context.Context
	navigationTimeout time.Duration
	tel               telemetry.API

	cancel func()
	proxy  *proxychain.Server

	closeOnce sync.Once
}

// Close tears down the browser and proxy. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		closeErr := chromedp.Cancel(closeCtx)
		cancel()
		if closeErr != nil {
			s.tel.ReportDebug("graceful browser close failed", closeErr)
		}
		s.cancel()
		if s.proxy != nil {
			err = s.proxy.Close()
			if err != nil {
				s.tel.ReportWarning(report_session_close, err)
			}
		}
	})
	return err
}
