// Package identity extracts the page identifier that scopes widget requests.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	PageHeaderName = "X-Widget-Page-ID"
	PageQueryParam = "page_id"
)

type contextKey int

const pageIDKey contextKey = iota

var pageIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// NewPageID returns a fresh page identifier.
func NewPageID() string {
	return "page_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PageIDFromContext extracts the page ID from the request context.
// It returns an empty string when the request carried no valid page ID.
func PageIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(pageIDKey).(string); ok {
		return v
	}
	return ""
}

// WithPageID returns a context carrying the page ID.
func WithPageID(ctx context.Context, pageID string) context.Context {
	return context.WithValue(ctx, pageIDKey, pageID)
}

func sanitizePageID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !pageIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func pageIDFromRequest(r *http.Request) string {
	id := r.Header.Get(PageHeaderName)
	if id == "" {
		// Browsers cannot set headers on websocket upgrades.
		id = r.URL.Query().Get(PageQueryParam)
	}
	return sanitizePageID(id)
}

// Middleware injects the per-request page ID, if any.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithPageID(r.Context(), pageIDFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
