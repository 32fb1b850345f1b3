package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serpmax/content-api/internal/store"
	"github.com/serpmax/content-api/internal/store/memory"
)

func TestPublish_CreatesArticleWithNormalizedSlug(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.publish(t, `{"title":"A","description":"B","slug":"My First Post!","content":"hello"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeJSON[publishResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "my-first-post", resp.Slug)
	assert.Equal(t, "/my-first-post", resp.URL)
	assert.Equal(t, "article created", resp.Message)
	assert.NotEmpty(t, resp.Version)

	doc, ok := env.store.Get("content/articles/my-first-post.md")
	require.True(t, ok)
	assert.Contains(t, string(doc), `title: "A"`)
	assert.Contains(t, string(doc), `slug: "my-first-post"`)
	assert.Contains(t, string(doc), `date: "2026-08-31"`, "date defaults to today")
	assert.Contains(t, string(doc), `author: "Serpmax Team"`, "author defaults")
	assert.Contains(t, string(doc), "published: true")
	assert.True(t, strings.HasSuffix(string(doc), "\n\nhello"))

	assert.Equal(t, []string{"/blog", "/my-first-post"}, env.revalidator.all())

	require.Len(t, env.audit.entries, 1)
	assert.Equal(t, "created", env.audit.entries[0].Action)
	assert.Equal(t, "my-first-post", env.audit.entries[0].Slug)
}

func TestPublish_SecondWriteUpdatesInPlace(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	first := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"v1"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"v2"}`)
	require.Equal(t, http.StatusCreated, second.Code)
	resp := decodeJSON[publishResponse](t, second)
	assert.Equal(t, "article updated", resp.Message)

	doc, ok := env.store.Get("content/articles/abc.md")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(string(doc), "v2"), "last write wins")
}

func TestPublish_SlugTooShort(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.publish(t, `{"title":"A","description":"B","slug":"ab","content":"hello"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 3 characters")
}

func TestPublish_MissingFieldsNamed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.publish(t, `{"title":"A","slug":"abc"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeJSON[missingFieldsResponse](t, rec)
	assert.Equal(t, "missing required fields", resp.Error)
	assert.Equal(t, []string{"description", "content"}, resp.Required)
}

func TestPublish_InvalidJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.publish(t, `{invalid`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublish_Unauthorized(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"c"}`,
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer wrong") })
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"c"}`,
		func(r *http.Request) { r.Header.Del("Authorization") })
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Eleven publishes from one client inside the window: the eleventh is
// rejected with retry guidance regardless of payload validity.
func TestPublish_RateLimited(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	forwarded := func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.9") }

	for i := range 10 {
		body := fmt.Sprintf(`{"title":"A","description":"B","slug":"post-%d","content":"c"}`, i)
		rec := env.publish(t, body, forwarded)
		require.Equal(t, http.StatusCreated, rec.Code, "request %d", i+1)
	}

	rec := env.publish(t, `{invalid`, forwarded)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestPublish_RateLimitKeysAreIndependent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for i := range 10 {
		body := fmt.Sprintf(`{"title":"A","description":"B","slug":"post-%d","content":"c"}`, i)
		env.publish(t, body, func(r *http.Request) { r.Header.Set("X-Forwarded-For", "198.51.100.1") })
	}

	rec := env.publish(t, `{"title":"A","description":"B","slug":"other","content":"c"}`,
		func(r *http.Request) { r.Header.Set("X-Forwarded-For", "198.51.100.2") })
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestPublish_UnsupportedContentType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"c"}`,
		func(r *http.Request) { r.Header.Set("Content-Type", "text/plain") })
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestPublish_BodyTooLarge(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	huge := strings.Repeat("x", 2<<20)
	rec := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"`+huge+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type conflictingStore struct {
	*memory.Store
}

func (c *conflictingStore) Write(_ context.Context, _ string, _ []byte, _ string) (string, error) {
	return "", store.ErrConflict
}

// A version token rejected on write surfaces as 409, not a generic 500.
func TestPublish_ConflictIsDistinct(t *testing.T) {
	t.Parallel()

	mem := memory.New()
	env := newTestEnvWithStore(t, &conflictingStore{Store: mem}, mem)

	rec := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"c"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "modified concurrently")
}

type failingStore struct {
	*memory.Store
}

func (f *failingStore) Stat(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("remote store unavailable")
}

func TestPublish_RemoteStoreFailure(t *testing.T) {
	t.Parallel()

	mem := memory.New()
	env := newTestEnvWithStore(t, &failingStore{Store: mem}, mem)

	rec := env.publish(t, `{"title":"A","description":"B","slug":"abc","content":"c"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "remote store unavailable")
	assert.NotContains(t, rec.Body.String(), testAPIKey, "secret must not leak")
}

func TestList_ReturnsSlugsAndTotal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.publish(t, `{"title":"A","description":"B","slug":"zeta","content":"c"}`)
	env.publish(t, `{"title":"A","description":"B","slug":"alpha","content":"c"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/articles", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[listResponse](t, rec)
	assert.Equal(t, []string{"alpha", "zeta"}, resp.Articles)
	assert.Equal(t, 2, resp.Total)
}

// A wrong credential on the list operation yields 401 and leaks no slugs.
func TestList_UnauthorizedLeaksNothing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.publish(t, `{"title":"A","description":"B","slug":"hidden-post","content":"c"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/articles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hidden-post")
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
	assert.Equal(t, "unknown", clientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientKey(req))
}
