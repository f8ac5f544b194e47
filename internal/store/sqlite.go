package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/scripture-chat/internal/domain"
	"github.com/ashureev/scripture-chat/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// modernc.org/sqlite applies _pragma parameters to every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS created_objects (
		page_id TEXT NOT NULL,
		object_id TEXT NOT NULL,
		object_type TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (page_id, object_id)
	);
	CREATE INDEX IF NOT EXISTS idx_created_objects_created ON created_objects(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TrackObject records a remote object created by a page.
func (s *SQLiteStore) TrackObject(ctx context.Context, pageID string, ref domain.CreatedObjectRef) error {
	query := `
	INSERT INTO created_objects (page_id, object_id, object_type, name, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(page_id, object_id) DO UPDATE SET
		object_type = excluded.object_type,
		name = excluded.name`

	createdAt := ref.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := shared.RetryOnConflict(ctx, shared.DefaultRetryPolicy, "track object", func() error {
		_, err := s.db.ExecContext(ctx, query, pageID, ref.ID, string(ref.Type), ref.Name, createdAt.UnixNano())
		return err
	})
	if err != nil {
		return wrapErr("track object", err)
	}
	return nil
}

// ListObjects returns the objects of a page in creation order.
func (s *SQLiteStore) ListObjects(ctx context.Context, pageID string) ([]domain.CreatedObjectRef, error) {
	query := `
		SELECT page_id, object_id, object_type, name, created_at
		FROM created_objects WHERE page_id = ?
		ORDER BY created_at, object_id`

	objects, err := s.queryObjects(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	refs := make([]domain.CreatedObjectRef, 0, len(objects))
	for _, o := range objects {
		refs = append(refs, o.Ref)
	}
	return refs, nil
}

// ListAllObjects returns every journaled object across pages.
func (s *SQLiteStore) ListAllObjects(ctx context.Context) ([]PageObject, error) {
	query := `
		SELECT page_id, object_id, object_type, name, created_at
		FROM created_objects
		ORDER BY created_at, page_id, object_id`
	return s.queryObjects(ctx, query)
}

// UntrackObjects forgets the given objects of a page. Unknown IDs are ignored.
func (s *SQLiteStore) UntrackObjects(ctx context.Context, pageID string, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}

	query := `DELETE FROM created_objects WHERE page_id = ? AND object_id IN (?` +
		strings.Repeat(", ?", len(objectIDs)-1) + `)`
	args := make([]any, 0, len(objectIDs)+1)
	args = append(args, pageID)
	for _, id := range objectIDs {
		args = append(args, id)
	}

	err := shared.RetryOnConflict(ctx, shared.DefaultRetryPolicy, "untrack objects", func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return wrapErr("untrack objects", err)
	}
	return nil
}

func (s *SQLiteStore) queryObjects(ctx context.Context, query string, args ...any) ([]PageObject, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query objects", err)
	}
	defer rows.Close()

	var out []PageObject
	for rows.Next() {
		var (
			o         PageObject
			objType   string
			createdAt int64
		)
		if err := rows.Scan(&o.PageID, &o.Ref.ID, &objType, &o.Ref.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		o.Ref.Type = domain.ObjectType(objType)
		o.Ref.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate objects", err)
	}
	return out, nil
}

func wrapErr(op string, err error) error {
	if shared.IsSQLiteConflictError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreBusy, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
