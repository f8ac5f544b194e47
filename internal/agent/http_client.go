package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseBodySize caps how much of a response body is read (4MB).
const maxResponseBodySize = 4 << 20

// HTTPClient talks to the remote agent service over JSON/HTTP.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	cfg     Config
	logger  *slog.Logger
}

// NewHTTPClient creates a new client for the remote agent service.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid agent base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.APIToken == "" || cfg.UsageKey == "" {
		return nil, ErrMissingCredentials
	}

	logger.Info("Agent service client configured", "base_url", cfg.BaseURL, "timeout", cfg.Timeout)

	return &HTTPClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// CreateAgent creates a remote agent instance.
func (c *HTTPClient) CreateAgent(ctx context.Context, req CreateAgentRequest) (*CreateAgentResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, EndpointCreateAgent, req)
	if err != nil {
		return nil, err
	}

	var out CreateAgentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode create-agent: %w", ErrMalformedResponse, err)
	}
	if out.AgentID == "" {
		return nil, fmt.Errorf("%w: create-agent returned no agent_id", ErrMalformedResponse)
	}
	out.Raw = raw
	return &out, nil
}

// Chat sends a single user message to an agent.
func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, EndpointChat, req)
	if err != nil {
		return nil, err
	}

	var body struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: decode chat: %w", ErrMalformedResponse, err)
	}
	if body.Response == nil {
		return nil, fmt.Errorf("%w: chat returned no response field", ErrMalformedResponse)
	}
	return &ChatResponse{Response: *body.Response, Raw: raw}, nil
}

// DeleteObject deletes a remote resource. The response body is returned as text
// and is not interpreted.
func (c *HTTPClient) DeleteObject(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("delete object: empty id")
	}
	raw, err := c.do(ctx, http.MethodDelete, EndpointObjects+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, endpoint, err)
	}
	req.Header.Set(HeaderAuthorization, "Bearer "+c.cfg.APIToken)
	req.Header.Set(HeaderUsageKey, c.cfg.UsageKey)
	if c.cfg.AppID != "" {
		req.Header.Set(HeaderAppID, c.cfg.AppID)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Agent service call", "method", method, "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close agent response body", "endpoint", endpoint, "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:   method,
			Endpoint: endpoint,
			Code:     resp.StatusCode,
			Body:     string(raw),
		}
	}
	return raw, nil
}
