// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/scripture-chat/internal/domain"
)

// ErrStoreBusy is returned when SQLite reports a lock conflict.
var ErrStoreBusy = errors.New("store is busy")

// PageObject is a journaled remote object together with the page that created it.
type PageObject struct {
	PageID string
	Ref    domain.CreatedObjectRef
}

// Repository journals the remote objects created by pages. It holds cleanup
// bookkeeping only; transcripts and diagnostics are never persisted.
type Repository interface {
	// TrackObject records a remote object created by a page.
	TrackObject(ctx context.Context, pageID string, ref domain.CreatedObjectRef) error

	// ListObjects returns the objects of a page in creation order.
	ListObjects(ctx context.Context, pageID string) ([]domain.CreatedObjectRef, error)

	// ListAllObjects returns every journaled object across pages.
	ListAllObjects(ctx context.Context) ([]PageObject, error)

	// UntrackObjects forgets the given objects of a page. Unknown IDs are ignored.
	UntrackObjects(ctx context.Context, pageID string, objectIDs []string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
