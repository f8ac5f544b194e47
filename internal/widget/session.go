package widget

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/domain"
)

// Initialize creates the page's remote agent. It runs at most once per page;
// the outcome is reflected in the transcript, and the returned error is for
// logging only. There is no automatic retry.
func (w *Widget) Initialize(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyInitialized
	}
	w.started = true
	w.session = domain.Session{Status: domain.SessionInitializing}
	w.publishSessionLocked()
	w.mu.Unlock()

	// A dispatched call always runs to completion.
	resp, err := w.client.CreateAgent(context.WithoutCancel(ctx), agent.CreateAgentRequest{
		Instructions: w.persona.Instructions,
		AgentName:    w.persona.Name,
	})
	if err != nil {
		w.mu.Lock()
		w.session = domain.Session{Status: domain.SessionFailed}
		w.appendLocked(domain.RoleSystemError, w.persona.InitErrorText)
		w.publishSessionLocked()
		w.mu.Unlock()

		w.logger.Error("Failed to initialize agent", "error", err)
		return fmt.Errorf("initialize agent: %w", err)
	}

	ref := domain.CreatedObjectRef{
		Type:      domain.ObjectTypeAgent,
		ID:        resp.AgentID,
		Name:      w.persona.Name,
		CreatedAt: w.now().UTC(),
	}

	w.mu.Lock()
	w.session = domain.Session{AgentID: resp.AgentID, Status: domain.SessionReady}
	w.objects = append(w.objects, ref)
	w.appendLocked(domain.RoleAgent, w.persona.Greeting)
	w.publishSessionLocked()
	w.publishObjectsLocked()
	w.mu.Unlock()

	if w.journal != nil {
		if err := w.journal.TrackObject(context.WithoutCancel(ctx), w.id, ref); err != nil {
			w.logger.Warn("failed to journal created agent", "agent_id", ref.ID, "error", err)
		}
	}

	w.logger.Info("Agent initialized", "agent_id", resp.AgentID)
	return nil
}

// TeardownResult reports the outcome of a bulk deletion.
type TeardownResult struct {
	Attempted int      `json:"attempted"`
	Deleted   int      `json:"deleted"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// DeleteAllObjects deletes every remote resource this page created and clears
// the tracked set regardless of individual failures. If the session's agent
// was among them, the session loses its agent and returns to Uninitialized.
// Refs whose deletion failed stay in the journal for the next orphan sweep.
func (w *Widget) DeleteAllObjects(ctx context.Context) TeardownResult {
	w.teardownMu.Lock()
	defer w.teardownMu.Unlock()

	w.mu.Lock()
	refs := slices.Clone(w.objects)
	w.mu.Unlock()

	result := Teardown(ctx, w.client, refs, w.logger)

	w.mu.Lock()
	w.objects = nil
	if w.session.HasAgent() && slices.ContainsFunc(refs, func(r domain.CreatedObjectRef) bool {
		return r.IsAgent() && r.ID == w.session.AgentID
	}) {
		w.session = domain.Session{Status: domain.SessionUninitialized}
		w.publishSessionLocked()
	}
	w.publishObjectsLocked()
	w.mu.Unlock()

	if settled := SettledIDs(refs, result); w.journal != nil && len(settled) > 0 {
		if err := w.journal.UntrackObjects(context.WithoutCancel(ctx), w.id, settled); err != nil {
			w.logger.Warn("failed to update object journal", "error", err)
		}
	}

	w.logger.Info("Created objects deleted",
		"attempted", result.Attempted,
		"deleted", result.Deleted,
		"failed", result.Failed)
	return result
}

// Teardown deletes every agent-typed ref one at a time. A failed deletion is
// logged and does not stop the remaining ones. Once started, deletions run to
// completion even if ctx is cancelled.
func Teardown(ctx context.Context, client agent.Client, refs []domain.CreatedObjectRef, logger *slog.Logger) TeardownResult {
	if logger == nil {
		logger = slog.Default()
	}
	ctx = context.WithoutCancel(ctx)

	var result TeardownResult
	for _, ref := range refs {
		if !ref.IsAgent() {
			continue
		}
		result.Attempted++

		text, err := client.DeleteObject(ctx, ref.ID)
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, ref.ID)
			logger.Warn("Failed to delete remote object", "object_id", ref.ID, "error", err)
			continue
		}
		result.Deleted++
		logger.Info("Remote object deleted", "object_id", ref.ID, "response", text)
	}
	return result
}

// SettledIDs returns the IDs of refs that need no further cleanup: everything
// except the deletions that failed.
func SettledIDs(refs []domain.CreatedObjectRef, result TeardownResult) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !slices.Contains(result.FailedIDs, ref.ID) {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}
