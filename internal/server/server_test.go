package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spellbreak/config"
	"spellbreak/internal/nats"
	"spellbreak/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Auth: config.AuthConfig{
			Username:  "tito",
			Password:  "s3cret",
			Realm:     "spellbreak",
			RateLimit: 100,
		},
		API: config.APIConfig{
			UnknownFields: config.UnknownFieldsReject,
			PageSize:      30,
			MaxPageSize:   100,
		},
		Admin:   config.AdminConfig{Enabled: true, PageSize: 50},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	s, err := New(cfg, testutil.SetupSQLite(t), nats.NoopPublisher{})
	require.NoError(t, err)
	return s.Handler()
}

func request(h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	if auth {
		req.SetBasicAuth("tito", "s3cret")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSecret(t *testing.T) {
	h := newServer(t, testConfig())

	rec := request(h, http.MethodGet, "/secret", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="spellbreak"`, rec.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rec.Body.String(), "unauthorized")

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.SetBasicAuth("tito", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(h, http.MethodGet, "/secret", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(secretPage), rec.Body.String())
}

func TestSecretRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RateLimit = 2
	h := newServer(t, cfg)

	for range 2 {
		assert.Equal(t, http.StatusUnauthorized, request(h, http.MethodGet, "/secret", "", false).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, request(h, http.MethodGet, "/secret", "", true).Code)
}

func TestResourcesAreOpenByDefault(t *testing.T) {
	h := newServer(t, testConfig())

	rec := request(h, http.MethodPost, "/users", `{"data":{"type":"user","attributes":{"username":"tito","discord_id":1}}}`, false)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/users", "", false).Code)
}

func TestForceGatesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Force = true
	h := newServer(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, request(h, http.MethodGet, "/users", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, request(h, http.MethodGet, "/metrics", "", false).Code)
	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/users", "", true).Code)
}

func TestAdminRequiresAuth(t *testing.T) {
	h := newServer(t, testConfig())

	assert.Equal(t, http.StatusUnauthorized, request(h, http.MethodGet, "/admin/", "", false).Code)
	assert.Equal(t, http.StatusUnauthorized, request(h, http.MethodGet, "/admin/users/export", "", false).Code)

	rec := request(h, http.MethodGet, "/admin/users", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Users</h1>")
}

func TestAdminDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Enabled = false
	h := newServer(t, cfg)

	assert.Equal(t, http.StatusNotFound, request(h, http.MethodGet, "/admin/", "", true).Code)
}

func TestMetrics(t *testing.T) {
	h := newServer(t, testConfig())

	request(h, http.MethodPost, "/users", `{"data":{"type":"user","attributes":{"username":"tito","discord_id":1}}}`, false)
	request(h, http.MethodGet, "/users/1", "", false)
	request(h, http.MethodGet, "/nowhere", "", false)

	rec := request(h, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `spellbreak_http_requests_total{method="POST",route="/users",status="201"} 1`)
	assert.Contains(t, body, `spellbreak_http_requests_total{method="GET",route="/users/{id:[0-9]+}",status="200"} 1`)
	assert.Contains(t, body, `spellbreak_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `spellbreak_rows{table="users"} 1`)
	assert.Contains(t, body, `spellbreak_rows{table="records"} 0`)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New(testConfig(), testutil.SetupSQLite(t), nats.NoopPublisher{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewPublisherDisabled(t *testing.T) {
	p, closeFn, err := NewPublisher(&config.NATSConfig{Enabled: false})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, nats.NoopPublisher{}, p)
}
