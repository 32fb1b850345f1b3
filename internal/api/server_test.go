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

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/serpmax/content-api/internal/auditlog"
	"github.com/serpmax/content-api/internal/config"
	"github.com/serpmax/content-api/internal/ratelimit"
	"github.com/serpmax/content-api/internal/store"
	"github.com/serpmax/content-api/internal/store/memory"
)

const testAPIKey = "test-secret"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type capturingRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (c *capturingRevalidator) Revalidate(_ context.Context, paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, paths...)
	return nil
}

func (c *capturingRevalidator) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

type capturingAudit struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (c *capturingAudit) Record(_ context.Context, e auditlog.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *capturingAudit) Close() {}

func testConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{Port: 8080, TimeoutSeconds: 60},
		Auth:      config.AuthConfig{APIKey: testAPIKey},
		RateLimit: config.RateLimitConfig{Requests: 10, WindowSeconds: 60},
		Content: config.ContentConfig{
			Provider:       "memory",
			Dir:            "content/articles",
			PublicBasePath: "/",
			ListingPath:    "/blog",
			SiteURL:        "https://serpapis.com",
			MaxBodyBytes:   1 << 20,
		},
		Revalidate: config.RevalidateConfig{Provider: "noop"},
		Audit:      config.AuditConfig{Provider: "noop"},
	}
}

type testEnv struct {
	server      *Server
	store       *memory.Store
	clock       *fakeClock
	revalidator *capturingRevalidator
	audit       *capturingAudit
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m := memory.New()
	return newTestEnvWithStore(t, m, m)
}

// newTestEnvWithStore builds a server around backing, keeping mem for
// content inspection when backing wraps it.
func newTestEnvWithStore(t *testing.T, backing store.Store, mem *memory.Store) *testEnv {
	t.Helper()

	cfg := testConfig()
	clk := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	upserter := store.NewUpserter(backing, store.UpsertConfig{
		Dir:            cfg.Content.Dir,
		MaxReadRetries: 0,
		BackoffInitial: time.Millisecond,
		BackoffMax:     time.Millisecond,
	}, zap.NewNop())
	limiter := ratelimit.New(ratelimit.Config{
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateWindow(),
	}, clk)
	revalidator := &capturingRevalidator{}
	audit := &capturingAudit{}

	srv, err := NewServer(upserter, limiter, revalidator, audit, clk, cfg, zap.NewNop())
	require.NoError(t, err)

	ms, _ := backing.(*memory.Store)
	if ms == nil {
		ms = mem
	}
	return &testEnv{server: srv, store: ms, clock: clk, revalidator: revalidator, audit: audit}
}

func (e *testEnv) publish(t *testing.T, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/articles", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
