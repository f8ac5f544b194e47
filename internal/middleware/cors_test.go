package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(origins, "X-Widget-Page-ID")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/state", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCORSWildcardEchoesOriginWithoutCredentials(t *testing.T) {
	rr := serveCORS([]string{"*"}, http.MethodGet, "https://blog.example")

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://blog.example" {
		t.Fatalf("expected echoed origin, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("expected no credentials for wildcard, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Widget-Page-ID" {
		t.Fatalf("unexpected allow headers %q", got)
	}
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected request to reach handler, got %d", rr.Code)
	}
}

func TestCORSExplicitOriginAllowsCredentials(t *testing.T) {
	rr := serveCORS([]string{"https://blog.example"}, http.MethodGet, "https://blog.example")
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials for explicit origin, got %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	rr := serveCORS([]string{"https://blog.example"}, http.MethodGet, "https://evil.example")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rr := serveCORS([]string{"*"}, http.MethodOptions, "https://blog.example")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rr.Code)
	}
}
