package pages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/domain"
	"github.com/ashureev/scripture-chat/internal/store"
	"github.com/ashureev/scripture-chat/internal/widget"
)

// OrphanJournal is the part of the object journal used by SweepOrphans.
type OrphanJournal interface {
	ListAllObjects(ctx context.Context) ([]store.PageObject, error)
	UntrackObjects(ctx context.Context, pageID string, objectIDs []string) error
}

// SweepOrphans deletes remote objects journaled by pages of a previous
// process. Pages never survive a restart, so every journaled object is an
// orphan. Failures are isolated per object; failed deletions stay journaled
// and are retried by the next sweep.
func SweepOrphans(ctx context.Context, client agent.Client, journal OrphanJournal, logger *slog.Logger) (widget.TeardownResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	objects, err := journal.ListAllObjects(ctx)
	if err != nil {
		return widget.TeardownResult{}, fmt.Errorf("list orphaned objects: %w", err)
	}
	if len(objects) == 0 {
		return widget.TeardownResult{}, nil
	}

	var (
		pageOrder []string
		byPage    = make(map[string][]domain.CreatedObjectRef)
	)
	for _, o := range objects {
		if _, seen := byPage[o.PageID]; !seen {
			pageOrder = append(pageOrder, o.PageID)
		}
		byPage[o.PageID] = append(byPage[o.PageID], o.Ref)
	}

	var total widget.TeardownResult
	for _, pageID := range pageOrder {
		refs := byPage[pageID]
		res := widget.Teardown(ctx, client, refs, logger.With("page_id", pageID))
		total.Attempted += res.Attempted
		total.Deleted += res.Deleted
		total.Failed += res.Failed
		total.FailedIDs = append(total.FailedIDs, res.FailedIDs...)

		if settled := widget.SettledIDs(refs, res); len(settled) > 0 {
			if err := journal.UntrackObjects(context.WithoutCancel(ctx), pageID, settled); err != nil {
				logger.Warn("failed to update orphan journal", "page_id", pageID, "error", err)
			}
		}
	}

	logger.Info("Orphaned objects swept",
		"pages", len(pageOrder),
		"attempted", total.Attempted,
		"deleted", total.Deleted,
		"failed", total.Failed)
	return total, nil
}
