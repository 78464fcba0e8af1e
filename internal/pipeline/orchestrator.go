// Package pipeline acquires a case from the portal: it drives sessions, challenges and
// extraction until the case is found, ruled out, or acquisition has to give up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/browser"
	"ecourts-backend/internal/captcha"
	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/proxychain"
	"ecourts-backend/internal/scrapers/ecourts"
	"ecourts-backend/internal/telemetry"
	libtelemetry "ecourts-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_orchestrator_attempt = "orchestrator.attempt"
	report_orchestrator_fault   = "orchestrator.fault"
	report_orchestrator_close   = "orchestrator.close-session"
	report_orchestrator_scratch = "orchestrator.remove-scratch"
)

var tracer = libtelemetry.Tracer("pipeline")
var meter = libtelemetry.Meter("pipeline")
var attemptCounter, _ = meter.Int64Counter("attempts")
var outcomeCounter, _ = meter.Int64Counter("outcomes")

// Session is an open browser session.
type Session interface {
	portal.Page
	Close() error
}

// note: fault injection point
type SessionOpener interface {
	Open(ctx context.Context, proxyEndpoint string) (Session, error)
}

type OpenerFunc func(ctx context.Context, proxyEndpoint string) (Session, error)

func (f OpenerFunc) Open(ctx context.Context, proxyEndpoint string) (Session, error) {
	return f(ctx, proxyEndpoint)
}

// BrowserOpener opens real browser sessions with the launcher.
func BrowserOpener(launcher browser.Launcher) SessionOpener {
	return OpenerFunc(func(ctx context.Context, proxyEndpoint string) (Session, error) {
		session, err := launcher.Open(ctx, proxyEndpoint)
		if err != nil {
			return nil, err
		}
		return session, nil
	})
}

type ChallengeSolver interface {
	Solve(ctx context.Context, page portal.Page, selector string) (*captcha.Attempt, error)
}

type OrderRetriever interface {
	RetrieveAll(ctx context.Context, page portal.Page, req ecourts.RetrieveRequest) ([]ecourts.OrderDocument, error)
}

type Options struct {
	Proxy    proxychain.Source
	Sessions SessionOpener
	Solver   ChallengeSolver
	Orders   OrderRetriever

	Selectors portal.Selectors
	Timeouts  portal.Timeouts
	BaseURL   string
	// ScratchRoot holds the intrim_orders directory.
	ScratchRoot string

	// MaxAttempts bounds the number of solved challenges of one acquisition.
	MaxAttempts int
	// SolvesPerSession is how many rejected challenges a session may retry before it is restarted.
	SolvesPerSession int
	// RetryDelay is waited before restarting after a transient failure.
	RetryDelay time.Duration
}

type Orchestrator struct {
	opts       Options
	classifier ecourts.Classifier
	extractor  ecourts.Extractor
	tel        telemetry.API
}

func NewOrchestrator(opts Options, tel telemetry.API) *Orchestrator {
	assert.NotNil(opts.Proxy)
	assert.NotNil(opts.Sessions)
	assert.NotNil(opts.Solver)
	assert.NotNil(opts.Orders)
	assert.NotNil(tel)

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 9999
	}
	if opts.SolvesPerSession <= 0 {
		opts.SolvesPerSession = 3
	}
	if opts.BaseURL == "" {
		opts.BaseURL = portal.DefaultBaseURL
	}
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = "."
	}

	return &Orchestrator{
		opts:       opts,
		classifier: ecourts.NewClassifier(opts.Selectors, opts.Timeouts),
		extractor:  ecourts.NewExtractor(opts.Selectors, opts.Timeouts, tel),
		tel:        telemetry.NewScopedAPI("pipeline", tel),
	}
}

// budget counts attempts across sessions.
type budget struct {
	used int
	max  int
}

// take reserves an attempt, it returns false once the budget is spent.
func (b *budget) take() bool {
	if b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Acquire runs attempts until one of them ends in a terminal outcome. Exhausting the
// attempt budget, a missing proxy, a canceled context or an internal fault end it with Fatal.
func (o *Orchestrator) Acquire(ctx context.Context, query CaseQuery) (result Result) {
	ctx, span := tracer.Start(ctx, "pipeline:Acquire", trace.WithAttributes(
		attribute.String("case_id", query.CaseID()),
		attribute.String("cutoff", query.Cutoff().String()),
	))
	defer span.End()

	b := &budget{max: o.opts.MaxAttempts}
	defer func() {
		result.Attempts = b.used
		outcomeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result.Outcome.String())))
		span.SetAttributes(
			attribute.String("outcome", result.Outcome.String()),
			attribute.Int("attempts", result.Attempts),
		)
		if result.Outcome == Fatal {
			span.SetStatus(codes.Error, result.Reason)
		}
	}()

	for {
		if ctx.Err() != nil {
			return fatal(fmt.Sprintf("canceled: %v", ctx.Err()))
		}
		if !b.take() {
			return fatal(fmt.Sprintf("exhausted attempts after %d tries", b.used))
		}

		res := o.attempt(ctx, query, b)
		if res.Outcome != TransientFailure {
			return res
		}
		o.tel.ReportWarning(report_orchestrator_attempt, res.Reason, query.CaseID(), b.used)

		if o.opts.RetryDelay > 0 {
			timer := time.NewTimer(o.opts.RetryDelay)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			timer.Stop()
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, query CaseQuery, b *budget) (result Result) {
	ctx, span := tracer.Start(ctx, "pipeline:attempt", trace.WithAttributes(attribute.Int("attempt", b.used)))
	defer span.End()
	attemptCounter.Add(ctx, 1)

	defer func() {
		if r := recover(); r != nil {
			o.tel.ReportBroken(report_orchestrator_fault, fmt.Errorf("%v", r), query.CaseID())
			result = fatal(fmt.Sprintf("internal fault: %v", r))
		}
		if result.Outcome == TransientFailure {
			span.SetStatus(codes.Error, result.Reason)
		}
	}()

	endpoint, err := o.opts.Proxy.ProxyEndpoint(ctx)
	if errors.Is(err, proxychain.ErrUnavailable) {
		return fatal(err.Error())
	}
	if err != nil {
		return transient(fmt.Sprintf("acquire proxy: %v", err))
	}

	session, err := o.opts.Sessions.Open(ctx, endpoint)
	if err != nil {
		return transient(fmt.Sprintf("open session: %v", err))
	}
	defer func() {
		err := session.Close()
		if err != nil {
			o.tel.ReportWarning(report_orchestrator_close, err)
		}
	}()

	scratch := ecourts.NewScratchDir(o.opts.ScratchRoot, query.CaseID())
	defer func() {
		err := scratch.Remove()
		if err != nil {
			o.tel.ReportWarning(report_orchestrator_scratch, err, scratch.Path)
		}
	}()

	class, evidence, failure := o.query(ctx, session, query, b)
	switch class {
	case ecourts.RecordFound:
	case ecourts.RecordNotFound:
		return Result{Outcome: RecordNotFound, Reason: evidence}
	case ecourts.InvalidQuery:
		return Result{Outcome: InvalidQuery, Reason: evidence}
	default:
		return transient(failure)
	}

	extractCtx, extractSpan := tracer.Start(ctx, "pipeline:extract")
	record, history := o.extractor.ExtractCase(extractCtx, session)
	record.History = ecourts.HistoryEntries(ecourts.FilterHistory(history, query.Cutoff()))
	extractSpan.SetAttributes(attribute.Int("history", len(record.History)))
	extractSpan.End()

	err = scratch.Ensure()
	if err != nil {
		return transient(fmt.Sprintf("create scratch dir: %v", err))
	}

	ordersCtx, ordersSpan := tracer.Start(ctx, "pipeline:orders")
	orders, err := o.opts.Orders.RetrieveAll(ordersCtx, session, ecourts.RetrieveRequest{
		CaseID: query.CaseID(),
		Cutoff: query.Cutoff(),
		Dir:    scratch.Path,
	})
	ordersSpan.SetAttributes(attribute.Int("orders", len(orders)))
	ordersSpan.End()
	if err != nil {
		return transient(fmt.Sprintf("retrieve orders: %v", err))
	}

	return success(record, orders)
}

// query loads the form, solves the challenge and classifies the result page, solving
// again in the same session when the portal rejects the answer. A non terminal
// classification comes with the reason of the failure.
func (o *Orchestrator) query(ctx context.Context, session Session, query CaseQuery, b *budget) (ecourts.Classification, string, string) {
	ctx, span := tracer.Start(ctx, "pipeline:query")
	defer span.End()

	for solves := 1; ; solves++ {
		err := ecourts.Load(ctx, session, o.opts.Selectors, o.opts.Timeouts, o.opts.BaseURL, query.CaseID())
		if err != nil {
			return ecourts.TransientFailure, "", fmt.Sprintf("load query form: %v", err)
		}

		attempt, err := o.opts.Solver.Solve(ctx, session, o.opts.Selectors.CaptchaImage)
		if err != nil {
			return ecourts.TransientFailure, "", fmt.Sprintf("capture challenge: %v", err)
		}
		if attempt.Text == "" {
			attempt.Discard()
			return ecourts.TransientFailure, "", "challenge unreadable"
		}
		err = ecourts.Submit(ctx, session, o.opts.Selectors, attempt.Text)
		attempt.Discard()
		if err != nil {
			return ecourts.TransientFailure, "", err.Error()
		}

		class, evidence := o.classifier.Classify(ctx, session)
		span.AddEvent("classified", trace.WithAttributes(attribute.String("classification", class.String())))
		switch class {
		case ecourts.ChallengeRejected:
			if solves >= o.opts.SolvesPerSession || !b.take() {
				return ecourts.TransientFailure, evidence, "challenge rejected"
			}
			o.tel.ReportDebug("challenge rejected, solving again", query.CaseID(), solves)
			_, _ = ecourts.DismissValidation(ctx, session, o.opts.Selectors)
		case ecourts.TransientFailure:
			return class, evidence, "result page did not render"
		default:
			return class, evidence, ""
		}
	}
}
