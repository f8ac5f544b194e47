package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capturePageID(t *testing.T, req *http.Request) string {
	t.Helper()
	var got string
	Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = PageIDFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestMiddlewarePrefersHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/state?page_id=from-query", nil)
	req.Header.Set(PageHeaderName, "from-header")
	assert.Equal(t, "from-header", capturePageID(t, req))
}

func TestMiddlewareFallsBackToQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/ws/widget?page_id=page_abc", nil)
	assert.Equal(t, "page_abc", capturePageID(t, req))
}

func TestMiddlewareRejectsInvalidIDs(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"has space", "semi;colon", strings.Repeat("x", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.Header.Set(PageHeaderName, id)
		assert.Empty(t, capturePageID(t, req), id)
	}
}

func TestNewPageIDIsValid(t *testing.T) {
	t.Parallel()

	id := NewPageID()
	assert.True(t, strings.HasPrefix(id, "page_"))
	assert.Equal(t, id, sanitizePageID(id))
	assert.NotEqual(t, id, NewPageID())
}
