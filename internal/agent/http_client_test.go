package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Config{
		BaseURL:  srv.URL,
		APIToken: "token-1",
		UsageKey: "usage-1",
		AppID:    "app-1",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestCreateAgentSendsCredentialsAndBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, EndpointCreateAgent, r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get(HeaderAuthorization))
		assert.Equal(t, "usage-1", r.Header.Get(HeaderUsageKey))
		assert.Equal(t, "app-1", r.Header.Get(HeaderAppID))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateAgentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Study Helper", req.AgentName)
		assert.Equal(t, "be kind", req.Instructions)

		_, _ = io.WriteString(w, `{"agent_id":"agent-42","model":"ignored"}`)
	})

	resp, err := client.CreateAgent(context.Background(), CreateAgentRequest{
		Instructions: "be kind",
		AgentName:    "Study Helper",
	})
	require.NoError(t, err)
	assert.Equal(t, "agent-42", resp.AgentID)
	assert.JSONEq(t, `{"agent_id":"agent-42","model":"ignored"}`, string(resp.Raw))
}

func TestCreateAgentRejectsMissingAgentID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	_, err := client.CreateAgent(context.Background(), CreateAgentRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChatReturnsResponseField(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent-42", req.AgentID)
		assert.Equal(t, "What is faith?", req.Message)
		_, _ = io.WriteString(w, `{"response":"Faith is trust."}`)
	})

	resp, err := client.Chat(context.Background(), ChatRequest{AgentID: "agent-42", Message: "What is faith?"})
	require.NoError(t, err)
	assert.Equal(t, "Faith is trust.", resp.Response)
}

func TestChatErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		status    int
		body      string
		wantIs    error
		wantCode  int
		wantTyped bool
	}{
		{name: "non-2xx", status: http.StatusBadGateway, body: "upstream down", wantTyped: true, wantCode: http.StatusBadGateway},
		{name: "not json", status: http.StatusOK, body: "<html>", wantIs: ErrMalformedResponse},
		{name: "missing field", status: http.StatusOK, body: `{"answer":"x"}`, wantIs: ErrMalformedResponse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := client.Chat(context.Background(), ChatRequest{AgentID: "a", Message: "m"})
			require.Error(t, err)
			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			}
			if tc.wantTyped {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tc.wantCode, statusErr.Code)
				assert.Equal(t, tc.body, statusErr.Body)
			}
		})
	}
}

func TestDeleteObjectReturnsRawText(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/objects/agent-42", r.URL.Path)
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token-1", r.Header.Get(HeaderAuthorization))
		_, _ = io.WriteString(w, "deleted")
	})

	text, err := client.DeleteObject(context.Background(), "agent-42")
	require.NoError(t, err)
	assert.Equal(t, "deleted", text)
}

func TestNewHTTPClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPClient(Config{BaseURL: "http://localhost"}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
