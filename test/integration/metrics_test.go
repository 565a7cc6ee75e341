package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
	"github.com/oasislearninghub/oasis/internal/observability"
	"github.com/oasislearninghub/oasis/internal/server"
	"github.com/oasislearninghub/oasis/internal/server/handlers"
	"github.com/oasislearninghub/oasis/internal/session"
)

// sandboxDenied reports whether err means loopback sockets are blocked.
func sandboxDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted")
}

func startExporter(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics(0); err != nil {
		if sandboxDenied(err) {
			t.Skipf("metrics exporter cannot bind: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// startServer serves the full router on IPv4 loopback with an in-memory
// session manager.
func startServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	observability.InitCLILogger(false)
	observability.InitServerLogger("info", observability.ProfileStructured)

	opts := session.DefaultOptions()
	opts.Carousel.Autoplay = false
	manager := session.NewManager(opts)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	srv := server.New(server.Config{Host: "127.0.0.1", Metrics: true}, server.Deps{
		Sessions: manager,
		Policies: ratelimit.DefaultPolicies,
		Health:   handlers.NewHealthManager("test"),
	})

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if sandboxDenied(err) {
			t.Skipf("loopback listener blocked: %v", err)
		}
		require.NoError(t, err)
	}
	ts := &httptest.Server{Listener: listener, Config: &http.Server{Handler: srv.Handler()}}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func createSession(t *testing.T, ts *httptest.Server, client *http.Client) string {
	t.Helper()
	resp, err := client.Post(ts.URL+"/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created.ID
}

func scrape(t *testing.T, ts *httptest.Server, client *http.Client) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	return resp, string(body)
}

func TestMetricsUnderConcurrentTraffic(t *testing.T) {
	startExporter(t)
	ts, client := startServer(t)
	id := createSession(t, ts, client)

	paths := []string{
		"/health",
		"/v1/sessions/" + id,
		"/v1/sessions/missing",
		"/v1/policies",
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 6; i++ {
				resp, err := client.Get(ts.URL + paths[(w+i)%len(paths)])
				if err == nil {
					_ = resp.Body.Close()
				}
			}
		}(w)
	}
	wg.Wait()

	resp, body := scrape(t, ts, client)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, body, "oasis_http_requests_total")
	assert.Contains(t, body, "oasis_http_request_duration_ms")
	assert.NotContains(t, body, id, "session ids must not become labels")

	samples := 0
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		require.GreaterOrEqual(t, len(strings.Fields(line)), 2, "malformed sample %q", line)
		samples++
	}
	assert.Positive(t, samples)
}

func TestMetricsUnavailableWithoutExporter(t *testing.T) {
	previousExporter, previousTelemetry := observability.PrometheusExporter, observability.TelemetrySystem
	observability.PrometheusExporter, observability.TelemetrySystem = nil, nil
	t.Cleanup(func() {
		observability.PrometheusExporter, observability.TelemetrySystem = previousExporter, previousTelemetry
	})
	t.Setenv("OASIS_METRICS_ENABLED", "false")

	ts, client := startServer(t)

	resp, err := client.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = scrape(t, ts, client)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsRecordGateDecisions(t *testing.T) {
	startExporter(t)
	ts, client := startServer(t)
	id := createSession(t, ts, client)

	resp, err := client.Post(ts.URL+"/v1/sessions/"+id+"/events", "application/json",
		strings.NewReader(`{"kind":"click","target":"carousel-next"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := scrape(t, ts, client)
	assert.Contains(t, body, "oasis_gate_decisions_total")
	assert.Contains(t, body, "oasis_carousel_transitions_total")
}
