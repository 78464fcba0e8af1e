// Package api exposes case acquisition over connect and the plain REST route.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/chrono"
	"ecourts-backend/internal/ledger"
	"ecourts-backend/internal/notify"
	"ecourts-backend/internal/pipeline"
	"ecourts-backend/internal/resultcache"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/serviceutil"
	libtelemetry "ecourts-backend/lib/telemetry"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	report_service_cache  = "service.cache"
	report_service_ledger = "service.ledger"
	report_service_notify = "service.notify"
)

const AcquireCaseRecordProcedure = "/ecourts.v1.CaseService/AcquireCaseRecord"

var tracer = libtelemetry.Tracer("api")

// note: fault injection point
type Acquirer interface {
	Acquire(ctx context.Context, query pipeline.CaseQuery) pipeline.Result
}

type RunRecorder interface {
	Record(ctx context.Context, run ledger.Run) (ledger.Run, error)
}

type Options struct {
	Acquirer Acquirer
	Cache    resultcache.Cache
	Ledger   RunRecorder
	Notifier notify.Notifier
	Clock    chrono.API
	// MaxConcurrent bounds the number of browser sessions open at once.
	MaxConcurrent int64
	// AccessToken is required as a bearer token when set.
	AccessToken string
}

type Service struct {
	acquirer    Acquirer
	cache       resultcache.Cache
	ledger      RunRecorder
	notifier    notify.Notifier
	clock       chrono.API
	sessions    *semaphore.Weighted
	accessToken string
	tel         telemetry.API
}

func NewService(opts Options, tel telemetry.API) Service {
	assert.NotNil(opts.Acquirer)
	assert.NotNil(opts.Ledger)
	assert.NotNil(opts.Clock)
	assert.NotNil(tel)

	if opts.Cache == nil {
		opts.Cache = resultcache.Nop{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	return Service{
		acquirer:    opts.Acquirer,
		cache:       opts.Cache,
		ledger:      opts.Ledger,
		notifier:    opts.Notifier,
		clock:       opts.Clock,
		sessions:    semaphore.NewWeighted(opts.MaxConcurrent),
		accessToken: opts.AccessToken,
		tel:         telemetry.NewScopedAPI("api", tel),
	}
}

// Mount registers the connect procedure, the REST route and the health check.
func (s Service) Mount(mux *http.ServeMux) {
	mux.Handle(AcquireCaseRecordProcedure, connect.NewUnaryHandler(
		AcquireCaseRecordProcedure,
		s.AcquireCaseRecord,
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(
			serviceutil.NewConnectOtelInterceptor(),
			serviceutil.VerifyAccessTokenInterceptor(s.accessToken),
		),
	))
	mux.Handle("POST /api/update-cnr-details", serviceutil.VerifyAccessTokenMiddleware(
		s.accessToken,
		http.HandlerFunc(s.updateCnrDetails),
	))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

func (s Service) AcquireCaseRecord(ctx context.Context, req *connect.Request[AcquireRequest]) (*connect.Response[CaseResponse], error) {
	res, err := s.acquire(ctx, *req.Msg)
	if errors.Is(err, pipeline.ErrInvalidInput) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeCanceled, err)
	}
	if res.Status == pipeline.Fatal.String() {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New(res.Message))
	}
	return connect.NewResponse(&res), nil
}

type errorBody struct {
	Status bool   `json:"status"`
	Error  string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s Service) updateCnrDetails(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("malformed request body: %v", err)})
		return
	}

	res, err := s.acquire(r.Context(), req)
	if errors.Is(err, pipeline.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	if res.Status == pipeline.Fatal.String() {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// acquire validates the request before anything else so malformed input never
// opens a session.
func (s Service) acquire(ctx context.Context, req AcquireRequest) (CaseResponse, error) {
	query, err := pipeline.ParseQuery(req.CnrNumber, req.NextHearingDate)
	if err != nil {
		return CaseResponse{}, err
	}

	ctx, span := tracer.Start(ctx, "api:acquire", trace.WithAttributes(
		attribute.String("case_id", query.CaseID()),
	))
	defer span.End()

	key := resultcache.Key(query.CaseID(), query.Cutoff().String())
	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.tel.ReportWarning(report_service_cache, err, key)
	}
	if hit {
		var res CaseResponse
		err = json.Unmarshal(cached, &res)
		if err == nil {
			res.Cached = true
			span.SetAttributes(attribute.Bool("cached", true))
			return res, nil
		}
		s.tel.ReportWarning(report_service_cache, err, key)
	}

	err = s.sessions.Acquire(ctx, 1)
	if err != nil {
		return CaseResponse{}, fmt.Errorf("wait for a free session: %w", err)
	}
	started := s.clock.Now()
	result := s.acquirer.Acquire(ctx, query)
	finished := s.clock.Now()
	s.sessions.Release(1)

	res := newCaseResponse(query, result)

	_, err = s.ledger.Record(ctx, ledger.Run{
		CaseID:     query.CaseID(),
		Cutoff:     query.Cutoff().String(),
		Outcome:    result.Outcome.String(),
		Reason:     result.Reason,
		Attempts:   result.Attempts,
		Orders:     len(result.Orders),
		StartedAt:  started,
		FinishedAt: finished,
	})
	if err != nil {
		s.tel.ReportWarning(report_service_ledger, err, query.CaseID())
	}

	if result.Outcome == pipeline.Fatal {
		err = s.notifier.NotifyFatal(ctx, notify.Alert{
			CaseID:   query.CaseID(),
			Cutoff:   query.Cutoff().String(),
			Reason:   result.Reason,
			Attempts: result.Attempts,
		})
		if err != nil {
			s.tel.ReportWarning(report_service_notify, err, query.CaseID())
		}
	}

	if result.Outcome.Terminal() {
		encoded, err := json.Marshal(res)
		if err == nil {
			err = s.cache.Set(ctx, key, encoded)
		}
		if err != nil {
			s.tel.ReportWarning(report_service_cache, err, key)
		}
	}
	return res, nil
}
