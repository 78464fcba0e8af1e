package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ecourts-backend/internal/api"
	"ecourts-backend/internal/browser"
	"ecourts-backend/internal/captcha"
	"ecourts-backend/internal/chrono"
	"ecourts-backend/internal/fetch"
	"ecourts-backend/internal/ledger"
	"ecourts-backend/internal/notify"
	"ecourts-backend/internal/pipeline"
	"ecourts-backend/internal/proxychain"
	"ecourts-backend/internal/resultcache"
	"ecourts-backend/internal/scrapers/ecourts"
	"ecourts-backend/internal/storage"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/restyutil"
)

// App is a fully wired server.
type App struct {
	Config       Config
	Orchestrator *pipeline.Orchestrator
	Ledger       ledger.Ledger
	Service      api.Service

	closers []io.Closer
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func recognizer(cfg CaptchaConfig) (captcha.Recognizer, error) {
	if cfg.Tesseract != "" {
		return captcha.Tesseract{Binary: cfg.Tesseract}, nil
	}
	return captcha.DetectTesseract()
}

func proxySource(cfg ProxyConfig, tel telemetry.API) proxychain.Source {
	var source proxychain.Source = proxychain.StaticSource{Endpoint: cfg.Endpoint}
	if cfg.VerifyURL != "" {
		source = proxychain.NewVerifyingSource(source, cfg.VerifyURL, tel)
	}
	return source
}

func fetchOptions(cfg Config) (fetch.Options, error) {
	opts := fetch.DefaultOptions()
	opts.Referer = cfg.Portal.BaseURL
	if cfg.Fetch.Attempts > 0 {
		opts.Attempts = cfg.Fetch.Attempts
	}
	if cfg.Fetch.DelaySeconds > 0 {
		opts.Delay = seconds(cfg.Fetch.DelaySeconds)
	}
	if cfg.Fetch.TimeoutSeconds > 0 {
		opts.Timeout = seconds(cfg.Fetch.TimeoutSeconds)
	}
	if cfg.Fetch.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Fetch.DumpDir)
		if err != nil {
			return fetch.Options{}, err
		}
		opts.Output = output
	}
	return opts, nil
}

// BuildOrchestrator wires the acquisition pipeline: proxy, browser,
// challenge solver, order retrieval and object storage.
func BuildOrchestrator(ctx context.Context, cfg Config, clock chrono.API, tel telemetry.API) (*pipeline.Orchestrator, error) {
	timeouts := cfg.timeouts()

	ocr, err := recognizer(cfg.Captcha)
	if err != nil {
		return nil, err
	}
	solver := captcha.NewSolver(ocr, cfg.Captcha.Dir, tel)

	fetchOpts, err := fetchOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("fetch options: %w", err)
	}
	uploader, err := storage.New(ctx, cfg.Storage, clock)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	orders, err := ecourts.NewOrderRetriever(ecourts.RetrieverOptions{
		Selectors:  cfg.Portal.Selectors,
		Timeouts:   timeouts,
		BaseURL:    cfg.Portal.BaseURL,
		Downloader: fetch.NewClient(fetchOpts, tel),
		Uploader:   uploader,
	}, tel)
	if err != nil {
		return nil, err
	}

	launcher := browser.Launcher{
		ExecPath:          cfg.Browser.ExecPath,
		Headed:            cfg.Browser.Headed,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: timeouts.Navigation,
		Tel:               tel,
	}

	return pipeline.NewOrchestrator(pipeline.Options{
		Proxy:            proxySource(cfg.Proxy, tel),
		Sessions:         pipeline.BrowserOpener(launcher),
		Solver:           solver,
		Orders:           orders,
		Selectors:        cfg.Portal.Selectors,
		Timeouts:         timeouts,
		BaseURL:          cfg.Portal.BaseURL,
		ScratchRoot:      cfg.Pipeline.ScratchRoot,
		MaxAttempts:      cfg.Pipeline.MaxAttempts,
		SolvesPerSession: cfg.Pipeline.SolvesPerSession,
		RetryDelay:       seconds(cfg.Pipeline.RetryDelaySeconds),
	}, tel), nil
}

// Build wires the http service on top of the acquisition pipeline.
func Build(ctx context.Context, cfg Config, tel telemetry.API) (*App, error) {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg}

	orchestrator, err := BuildOrchestrator(ctx, cfg, clock, tel)
	if err != nil {
		return nil, err
	}
	app.Orchestrator = orchestrator

	runs, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	app.Ledger = runs
	app.closers = append(app.closers, runs)

	cache, err := resultcache.New(ctx, cfg.Cache)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("result cache: %w", err)
	}
	if closer, ok := cache.(io.Closer); ok {
		app.closers = append(app.closers, closer)
	}

	notifier := notify.New(cfg.Email)
	if _, ok := notifier.(notify.Nop); ok {
		slog.WarnContext(ctx, "no smtp server configured, fatal acquisitions will not be emailed")
	}

	app.Service = api.NewService(api.Options{
		Acquirer:      orchestrator,
		Cache:         cache,
		Ledger:        runs,
		Notifier:      notifier,
		Clock:         clock,
		MaxConcurrent: int64(cfg.Server.MaxConcurrent),
		AccessToken:   cfg.Server.AccessToken,
	}, tel)
	return app, nil
}
