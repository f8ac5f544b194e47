// Package domain contains core domain types for the chat widget.
package domain

// SessionStatus is the readiness state of a page's remote agent session.
type SessionStatus string

const (
	// SessionUninitialized means no agent is associated with the page.
	SessionUninitialized SessionStatus = "uninitialized"
	// SessionInitializing means the create-agent call is in flight.
	SessionInitializing SessionStatus = "initializing"
	// SessionReady means the agent exists and turns may be submitted.
	SessionReady SessionStatus = "ready"
	// SessionFailed means agent creation failed; only a reload recovers.
	SessionFailed SessionStatus = "failed"
)

// Session is the client-side record of one created agent instance.
type Session struct {
	AgentID string        `json:"agent_id,omitempty"`
	Status  SessionStatus `json:"status"`
}

// HasAgent returns true if the session is bound to a remote agent.
func (s Session) HasAgent() bool {
	return s.AgentID != ""
}

// IsReady returns true if turns may be dispatched against the session.
func (s Session) IsReady() bool {
	return s.Status == SessionReady && s.HasAgent()
}
