package widget

import (
	"context"
	"errors"
	"net/http"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/domain"
)

// recordingClient mirrors every call made through it into a Recorder.
type recordingClient struct {
	next     agent.Client
	rec      *Recorder
	onRecord func(domain.APICallRecord)
}

var _ agent.Client = (*recordingClient)(nil)

func (c *recordingClient) CreateAgent(ctx context.Context, req agent.CreateAgentRequest) (*agent.CreateAgentResponse, error) {
	resp, err := c.next.CreateAgent(ctx, req)
	if err != nil {
		c.record(http.MethodPost, agent.EndpointCreateAgent, req, errorBody(err))
		return nil, err
	}
	c.record(http.MethodPost, agent.EndpointCreateAgent, req, resp.Raw)
	return resp, nil
}

func (c *recordingClient) Chat(ctx context.Context, req agent.ChatRequest) (*agent.ChatResponse, error) {
	resp, err := c.next.Chat(ctx, req)
	if err != nil {
		c.record(http.MethodPost, agent.EndpointChat, req, errorBody(err))
		return nil, err
	}
	c.record(http.MethodPost, agent.EndpointChat, req, resp.Raw)
	return resp, nil
}

func (c *recordingClient) DeleteObject(ctx context.Context, id string) (string, error) {
	endpoint := agent.EndpointObjects + id
	text, err := c.next.DeleteObject(ctx, id)
	if err != nil {
		c.record(http.MethodDelete, endpoint, nil, errorBody(err))
		return "", err
	}
	c.record(http.MethodDelete, endpoint, nil, text)
	return text, nil
}

func (c *recordingClient) record(method, endpoint string, req, resp any) {
	rec := c.rec.Record(method, endpoint, req, resp)
	if c.onRecord != nil {
		c.onRecord(rec)
	}
}

func errorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}
	var statusErr *agent.StatusError
	if errors.As(err, &statusErr) {
		body["status"] = statusErr.Code
		body["body"] = statusErr.Body
	}
	return body
}
