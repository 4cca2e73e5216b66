package app_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/km-arc/go-containers/framework/app"
	"github.com/km-arc/go-containers/framework/config"
	"github.com/km-arc/go-containers/framework/container"
	"github.com/km-arc/go-containers/framework/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test", Env: "testing", Port: "0"},
		Log: config.LogConfig{Level: "info", Format: "console"},
		Container: config.ContainerConfig{
			ScopePolicy:     "permissive",
			DefaultLifetime: "transient",
			Metrics:         true,
			Diagnostics:     true,
			DiagnosticsPath: "/_container",
		},
	}
}

func newApp(t *testing.T, cfg *config.Config) *app.Application {
	t.Helper()
	a, err := app.NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestNewWithConfig_RegistersCoreServices(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()
	require.NoError(t, a.Boot(ctx))

	cfg, err := container.Resolve[*config.Config](ctx, a)
	require.NoError(t, err)
	assert.Same(t, a.Config, cfg)

	_, err = container.Resolve[*zap.SugaredLogger](ctx, a)
	require.NoError(t, err)

	collector, err := container.Resolve[*metrics.Collector](ctx, a)
	require.NoError(t, err)
	assert.Same(t, a.Metrics, collector)

	r1, err := a.Router(ctx)
	require.NoError(t, err)
	r2, err := a.Router(ctx)
	require.NoError(t, err)
	assert.Same(t, r1, r2)
}

func TestNewWithConfig_InvalidPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Container.ScopePolicy = "sometimes"

	_, err := app.NewWithConfig(cfg, nil)
	assert.Error(t, err)
}

func TestBoot_MountsDiagnosticsAndMetrics(t *testing.T) {
	a := newApp(t, testConfig())
	ctx := context.Background()
	require.NoError(t, a.Boot(ctx))

	router, err := a.Router(ctx)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(t, router, "/_container").Code)

	regs := get(t, router, "/_container/registrations")
	assert.Equal(t, http.StatusOK, regs.Code)
	assert.Contains(t, regs.Body.String(), "*routing.Router")

	m := get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), "container_resolutions_total")
}

func TestBoot_DiagnosticsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Container.Metrics = false
	cfg.Container.Diagnostics = false

	a := newApp(t, cfg)
	ctx := context.Background()
	require.NoError(t, a.Boot(ctx))
	assert.Nil(t, a.Metrics)

	router, err := a.Router(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/_container").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/metrics").Code)
}

func TestServe_GracefulShutdownDisposesContainer(t *testing.T) {
	a, err := app.NewWithConfig(testConfig(), zap.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/_container"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, a.Disposed())
}

func TestEnvironmentHelpers(t *testing.T) {
	a := newApp(t, testConfig())
	assert.True(t, a.IsTesting())
	assert.False(t, a.IsProduction())
	assert.False(t, a.IsLocal())
	assert.Equal(t, "testing", a.Environment())
}
