package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ecourts-backend/internal/telemetry/telemetrytest"

	"github.com/stretchr/testify/require"
)

const fakePDF = "%PDF-1.4\n% not a real document\n"

func testOptions(attempts int) Options {
	return Options{
		Attempts:   attempts,
		Delay:      time.Millisecond,
		Timeout:    5 * time.Second,
		RequirePDF: true,
	}
}

func TestDownloadRetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	var cookies atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies.Store(r.Header.Get("Cookie"))
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(fakePDF))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "order.pdf")
	client := NewClient(testOptions(15), &telemetrytest.Recorder{})
	result, err := client.Download(context.Background(), server.URL+"/display_pdf", "JSESSION=abc; token=xyz", dest)
	require.NoError(t, err)
	require.Equal(t, int32(3), hits.Load())
	require.Equal(t, "JSESSION=abc; token=xyz", cookies.Load())
	require.Equal(t, len(fakePDF), result.Bytes)

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, fakePDF, string(contents))
}

func TestDownloadGivesUpAfterAttempts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "order.pdf")
	rec := &telemetrytest.Recorder{}
	_, err := NewClient(testOptions(4), rec).Download(context.Background(), server.URL, "", dest)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExhausted))
	require.Equal(t, int32(4), hits.Load())
	require.NoFileExists(t, dest)
	require.NotEmpty(t, rec.Find(telemetrytest.LevelWarning, report_client_download))
}

func TestDownloadRetriesTransportErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	opts := testOptions(4)
	opts.Delay = 150 * time.Millisecond
	dest := filepath.Join(t.TempDir(), "order.pdf")
	rec := &telemetrytest.Recorder{}

	_, err := NewClient(opts, rec).Download(context.Background(), server.URL+"/display_pdf", "", dest)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, int32(4), hits.Load())
	require.NoFileExists(t, dest)
	require.NotEmpty(t, rec.Find(telemetrytest.LevelWarning, report_client_download))
}

func TestDownloadRetriesNonPDF(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte("<html>session expired</html>"))
			return
		}
		w.Write([]byte(fakePDF))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "order.pdf")
	_, err := NewClient(testOptions(3), &telemetrytest.Recorder{}).Download(context.Background(), server.URL, "", dest)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}
