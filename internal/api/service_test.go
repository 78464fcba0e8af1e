package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ecourts-backend/internal/casedate"
	"ecourts-backend/internal/chrono"
	"ecourts-backend/internal/ledger"
	"ecourts-backend/internal/notify"
	"ecourts-backend/internal/pipeline"
	"ecourts-backend/internal/resultcache"
	"ecourts-backend/internal/scrapers/ecourts"
	"ecourts-backend/internal/telemetry/telemetrytest"
	"ecourts-backend/lib/sqliteutil"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

type fakeAcquirer struct {
	mu      sync.Mutex
	result  pipeline.Result
	queries []pipeline.CaseQuery
}

func (a *fakeAcquirer) Acquire(ctx context.Context, query pipeline.CaseQuery) pipeline.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queries = append(a.queries, query)
	return a.result
}

func (a *fakeAcquirer) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queries)
}

type fakeNotifier struct {
	alerts []notify.Alert
}

func (n *fakeNotifier) NotifyFatal(ctx context.Context, alert notify.Alert) error {
	n.alerts = append(n.alerts, alert)
	return nil
}

func successResult() pipeline.Result {
	return pipeline.Result{
		Outcome: pipeline.Success,
		Record: ecourts.CaseRecord{
			CaseDetails: map[string]string{"Case Type": "CS - Civil Suit"},
			History: []ecourts.HistoryEntry{
				{Ordinal: 1, Cells: []string{"Civil Judge", "01-03-2025", "05-03-2025", "Arguments"}},
			},
		},
		Orders: []ecourts.OrderDocument{{
			Table:            ecourts.LiveOrders,
			OrderDate:        casedate.Date{Day: 5, Month: time.March, Year: 2025},
			StorageReference: "https://case-orders.s3.ap-south-1.amazonaws.com/1741168800000_order.pdf",
		}},
		Attempts: 2,
	}
}

type testServer struct {
	server   *httptest.Server
	acquirer *fakeAcquirer
	notifier *fakeNotifier
	ledger   ledger.Ledger
}

func newTestServer(t *testing.T, result pipeline.Result, accessToken string) *testServer {
	t.Helper()
	db, err := sqliteutil.OpenDB(ledger.Schema, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts := &testServer{
		acquirer: &fakeAcquirer{result: result},
		notifier: &fakeNotifier{},
		ledger:   ledger.New(db),
	}
	service := NewService(Options{
		Acquirer:    ts.acquirer,
		Cache:       resultcache.NewMemory(16, time.Minute),
		Ledger:      ts.ledger,
		Notifier:    ts.notifier,
		Clock:       chrono.FixedImpl{Time: time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)},
		AccessToken: accessToken,
	}, &telemetrytest.Recorder{})

	mux := http.NewServeMux()
	service.Mount(mux)
	ts.server = httptest.NewServer(mux)
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) post(t *testing.T, body string, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/api/update-cnr-details", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(res.Body)
	require.NoError(t, err)
	return res, buf.Bytes()
}

func TestUpdateCnrDetails(t *testing.T) {
	ts := newTestServer(t, successResult(), "")

	res, body := ts.post(t, `{"cnr_number": "ab12cd3456ef7890", "next_hearing_date": "5th March 2025"}`, "")
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))

	var parsed CaseResponse
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Equal(t, "complete", parsed.Status)
	require.Equal(t, "AB12CD3456EF7890", parsed.CnrNumber)
	require.Equal(t, "CS - Civil Suit", parsed.CaseDetails["Case Type"])
	require.Equal(t, [][]string{{"Civil Judge", "01-03-2025", "05-03-2025", "Arguments"}}, parsed.CaseHistory)
	require.Equal(t, []OrderLink{{
		OrderDate: "05-03-2025",
		S3URL:     "https://case-orders.s3.ap-south-1.amazonaws.com/1741168800000_order.pdf",
		Table:     "order",
	}}, parsed.S3Links)
	require.Equal(t, 2, parsed.Attempts)
	require.False(t, parsed.Cached)

	runs, err := ts.ledger.Recent(context.Background(), "AB12CD3456EF7890", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "success", runs[0].Outcome)
	require.Equal(t, 1, runs[0].Orders)

	// the same query is answered from the cache
	res, body = ts.post(t, `{"cnr_number": "AB12CD3456EF7890", "next_hearing_date": "05-03-2025"}`, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.True(t, parsed.Cached)
	require.Equal(t, 1, ts.acquirer.calls())
}

func TestUpdateCnrDetailsRejectsInput(t *testing.T) {
	ts := newTestServer(t, successResult(), "")

	bodies := []string{
		`{"cnr_number": "AB12", "next_hearing_date": "5th March 2025"}`,
		`{"cnr_number": "AB12CD3456EF7890", "next_hearing_date": "30th February 2025"}`,
		`{"cnr_number": "AB12CD3456EF7890"}`,
		`not json`,
	}
	for _, body := range bodies {
		res, _ := ts.post(t, body, "")
		require.Equal(t, http.StatusBadRequest, res.StatusCode, body)
	}
	require.Zero(t, ts.acquirer.calls())
}

func TestUpdateCnrDetailsFatal(t *testing.T) {
	ts := newTestServer(t, pipeline.Result{
		Outcome:  pipeline.Fatal,
		Reason:   "exhausted attempts after 9999 tries",
		Attempts: 9999,
	}, "")

	for i := 0; i < 2; i++ {
		res, body := ts.post(t, `{"cnr_number": "AB12CD3456EF7890", "next_hearing_date": "5th March 2025"}`, "")
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		var parsed CaseResponse
		require.NoError(t, json.Unmarshal(body, &parsed))
		require.Equal(t, "fatal", parsed.Status)
		require.Equal(t, "exhausted attempts after 9999 tries", parsed.Message)
	}
	// fatal results are not cached
	require.Equal(t, 2, ts.acquirer.calls())
	require.Len(t, ts.notifier.alerts, 2)
	require.Equal(t, "05-03-2025", ts.notifier.alerts[0].Cutoff)
}

func TestUpdateCnrDetailsAccessToken(t *testing.T) {
	ts := newTestServer(t, successResult(), "secret")
	body := `{"cnr_number": "AB12CD3456EF7890", "next_hearing_date": "5th March 2025"}`

	res, _ := ts.post(t, body, "")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res, _ = ts.post(t, body, "secret")
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func newConnectClient(ts *testServer) *connect.Client[AcquireRequest, CaseResponse] {
	return connect.NewClient[AcquireRequest, CaseResponse](
		http.DefaultClient,
		ts.server.URL+AcquireCaseRecordProcedure,
		connect.WithCodec(jsonCodec{}),
	)
}

func TestAcquireCaseRecord(t *testing.T) {
	ts := newTestServer(t, pipeline.Result{
		Outcome:  pipeline.InvalidQuery,
		Reason:   "This Case Code does not exists",
		Attempts: 1,
	}, "")
	client := newConnectClient(ts)

	res, err := client.CallUnary(context.Background(), connect.NewRequest(&AcquireRequest{
		CnrNumber:       "AB12CD3456EF7890",
		NextHearingDate: "5th March 2025",
	}))
	require.NoError(t, err)
	require.Equal(t, "invalid_query", res.Msg.Status)
	require.Empty(t, res.Msg.S3Links)
	require.Equal(t, 1, ts.acquirer.calls())
}

func TestAcquireCaseRecordInvalidArgument(t *testing.T) {
	ts := newTestServer(t, successResult(), "")
	client := newConnectClient(ts)

	_, err := client.CallUnary(context.Background(), connect.NewRequest(&AcquireRequest{
		CnrNumber:       "not a cnr",
		NextHearingDate: "5th March 2025",
	}))
	require.Error(t, err)
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	require.Zero(t, ts.acquirer.calls())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, successResult(), "secret")
	res, err := http.Get(ts.server.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}
