package widget

import (
	"context"
	"strings"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/domain"
)

// Submit dispatches one user turn and blocks until it resolves.
//
// The call is a silent no-op, returning false, when the trimmed text is empty,
// the session is not Ready, or another turn is pending. Otherwise the user
// message is appended immediately, the turn is marked pending, and the agent's
// answer (or a generic error message) is appended when the call settles. The
// pending marker is always cleared before Submit returns.
func (w *Widget) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	w.mu.Lock()
	if !w.session.IsReady() || w.pending {
		w.mu.Unlock()
		return false
	}
	agentID := w.session.AgentID
	w.pending = true
	w.appendLocked(domain.RoleUser, text)
	w.publishPendingLocked()
	w.mu.Unlock()

	defer w.clearPending()

	// No cancellation: the turn runs to completion even if the caller goes away.
	resp, err := w.client.Chat(context.WithoutCancel(ctx), agent.ChatRequest{
		AgentID: agentID,
		Message: text,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.Warn("Chat turn failed", "agent_id", agentID, "error", err)
		w.appendLocked(domain.RoleSystemError, w.persona.TurnErrorText)
		return true
	}
	w.appendLocked(domain.RoleAgent, resp.Response)
	return true
}

func (w *Widget) clearPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = false
	w.publishPendingLocked()
}
