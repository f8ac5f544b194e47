package agent

import "context"

// Client defines the calls made against the remote agent service.
// This interface is implemented by the HTTP client.
type Client interface {
	// CreateAgent creates a remote agent instance with a persona.
	CreateAgent(ctx context.Context, req CreateAgentRequest) (*CreateAgentResponse, error)

	// Chat sends one user turn to an agent and returns its answer.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// DeleteObject removes a remote resource and returns the raw response text.
	DeleteObject(ctx context.Context, id string) (string, error)
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
