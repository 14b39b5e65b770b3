package scaler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/canopy-network/queuescaler/pkg/logging"
	"github.com/canopy-network/queuescaler/pkg/scaling"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	clocktesting "k8s.io/utils/clock/testing"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := scaling.DefaultConfig()
	cfg.MinReplicas, cfg.MaxReplicas = 4, 2
	logger := zaptest.NewLogger(t)

	_, err := New(Settings{Scaling: cfg}, logger, &stubQueue{}, NewFakeProvider(logger, 1), clocktesting.NewFakeClock(epoch))
	require.ErrorIs(t, err, scaling.ErrInvalidConfiguration)
}

func TestServerRoutes(t *testing.T) {
	h := newHarness(t, 1, 10)
	h.app.SetupServer()
	require.Equal(t, ":8000", h.app.Server.Addr)

	srv := httptest.NewServer(h.app.Server.Handler)
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "Service Unavailable", body)

	h.queue.set(42, nil)
	require.Equal(t, TickScaled, h.app.Tick(context.Background()).Status)

	code, body = get("/")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", body)

	code, _ = get("/healthz")
	require.Equal(t, http.StatusOK, code)

	code, body = get("/status")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"orchestrator"`)

	code, body = get("/metrics")
	require.Equal(t, http.StatusOK, code)
	require.True(t, strings.Contains(body, "queuescaler_queue_message_count 42"), body)
	require.Contains(t, body, "queuescaler_deployment_replica_count 5")
}

func TestLogLevelRoute(t *testing.T) {
	h := newHarness(t, 1, 10)
	_, level, err := logging.Build(logging.Options{Level: "info", Encoding: "json"})
	require.NoError(t, err)
	h.app.LogLevel = &level
	h.app.SetupServer()

	srv := httptest.NewServer(h.app.Server.Handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/log/level")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"level":"info"}`, string(body))

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/log/level", strings.NewReader(`{"level":"debug"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "debug", level.String())
}

func TestLogLevelRouteAbsentWithoutHandle(t *testing.T) {
	h := newHarness(t, 1, 10)
	h.app.SetupServer()

	req := httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"debug"}`))
	rr := httptest.NewRecorder()
	h.app.Server.Handler.ServeHTTP(rr, req)
	// only the GET catch-all health route matches the path
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRunOnceUsesSchedulerChain(t *testing.T) {
	h := newHarness(t, 1, 10)
	h.queue.set(15, nil)
	require.NoError(t, h.app.SetupScheduler(context.Background(), logging.NewCronAdapter(zaptest.NewLogger(t))))
	require.Equal(t, "@every 1m0s", h.app.CronSpec)

	h.app.RunOnce()
	require.Equal(t, []int32{2}, h.provider.sets)
	require.Equal(t, 23*time.Second, h.app.tickTimeout(), "two probes plus three bounded calls")
}
