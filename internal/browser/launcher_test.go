package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/telemetry/telemetrytest"

	"github.com/stretchr/testify/require"
)

func TestStartWithinKeepsStartedBrowser(t *testing.T) {
	var teardowns atomic.Int32
	err := startWithin(context.Background(), 50*time.Millisecond, func() { teardowns.Add(1) }, func() error {
		return nil
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.Zero(t, teardowns.Load())
}

func TestStartWithinTimeout(t *testing.T) {
	stopped := make(chan struct{})
	err := startWithin(context.Background(), 50*time.Millisecond, func() { close(stopped) }, func() error {
		<-stopped
		return context.Canceled
	})
	require.ErrorContains(t, err, "did not start within 50ms")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStartWithinCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := startWithin(ctx, time.Minute, func() { close(stopped) }, func() error {
		<-stopped
		return errors.New("websocket closed")
	})
	require.ErrorContains(t, err, "websocket closed")
}

func findChrome(t *testing.T) string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		path, err := exec.LookPath(name)
		if err == nil {
			return path
		}
	}
	t.Skip("no chrome binary on PATH")
	return ""
}

func TestOpenNavigateClose(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a browser")
	}
	execPath := findChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html")
		w.Write([]byte(`<html><body><p id="greeting">case found</p></body></html>`))
	}))
	defer server.Close()

	// the session must survive the end of the scope it was opened in
	openCtx, cancelOpen := context.WithTimeout(context.Background(), time.Minute)
	session, err := Launcher{
		ExecPath:          execPath,
		NavigationTimeout: 30 * time.Second,
		Tel:               &telemetrytest.Recorder{},
	}.Open(openCtx, "")
	cancelOpen()
	require.NoError(t, err)

	ctx := context.Background()
	err = session.Navigate(ctx, server.URL)
	require.NoError(t, err)
	err = session.WaitVisible(ctx, "#greeting", 10*time.Second)
	require.NoError(t, err)

	text, err := portal.Text(ctx, session, "#greeting")
	require.NoError(t, err)
	require.Equal(t, "case found", text)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	err = session.Navigate(ctx, server.URL)
	require.Error(t, err)
}
