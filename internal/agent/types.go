// Package agent implements the client for the remote agent service.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Remote endpoints, relative to the service base URL.
const (
	EndpointCreateAgent = "/create-agent"
	EndpointChat        = "/chat"
	EndpointObjects     = "/objects/"
)

// Credential and application headers sent on every call.
const (
	HeaderAuthorization = "Authorization"
	HeaderUsageKey      = "X-Usage-Key"
	HeaderAppID         = "X-Generated-App-ID"
)

var (
	// ErrMalformedResponse is returned when a 2xx body cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed response from agent service")
	// ErrMissingCredentials is returned when the client is built without credentials.
	ErrMissingCredentials = errors.New("agent service credentials are not configured")
)

// StatusError reports a non-2xx answer from the agent service.
type StatusError struct {
	Method   string
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Endpoint, e.Code)
}

// CreateAgentRequest is the body of POST /create-agent.
type CreateAgentRequest struct {
	Instructions string `json:"instructions"`
	AgentName    string `json:"agent_name"`
}

// CreateAgentResponse is the decoded answer of POST /create-agent.
// Extra fields returned by the service are kept only in Raw.
type CreateAgentResponse struct {
	AgentID string          `json:"agent_id"`
	Raw     json.RawMessage `json:"-"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	AgentID string `json:"agent_id"`
	Message string `json:"message"`
}

// ChatResponse is the decoded answer of POST /chat.
type ChatResponse struct {
	Response string          `json:"response"`
	Raw      json.RawMessage `json:"-"`
}

// Config holds the remote agent service connection settings.
type Config struct {
	BaseURL  string
	APIToken string
	UsageKey string
	AppID    string
	// Timeout bounds a single call. Zero disables the timeout.
	Timeout time.Duration
}

// DefaultBaseURL is the hosted agent service.
const DefaultBaseURL = "https://builder.empromptu.ai/api_tools"

// DefaultConfig returns default client configuration without credentials.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
	}
}
