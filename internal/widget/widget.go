// Package widget implements the per-page conversation state of the chat
// widget: session lifecycle, turn dispatch, transcript and diagnostics.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/config"
	"github.com/ashureev/scripture-chat/internal/domain"
)

// ErrAlreadyInitialized is returned when a page's session was already started.
var ErrAlreadyInitialized = errors.New("session already initialized")

// ObjectJournal persists created-object refs so they can be cleaned up even
// if the process dies before the page is torn down.
type ObjectJournal interface {
	TrackObject(ctx context.Context, pageID string, ref domain.CreatedObjectRef) error
	UntrackObjects(ctx context.Context, pageID string, objectIDs []string) error
}

// Options configures a Widget.
type Options struct {
	PageID         string
	Persona        config.Persona
	Client         agent.Client
	Journal        ObjectJournal // optional
	MaxDiagnostics int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Widget is the state of one page: exactly one session, its transcript,
// the pending-turn marker, created objects and call diagnostics.
type Widget struct {
	id      string
	persona config.Persona
	client  agent.Client
	journal ObjectJournal
	logger  *slog.Logger
	now     func() time.Time

	log         *Log
	diagnostics *Recorder
	events      *broadcaster

	mu      sync.Mutex
	session domain.Session
	started bool
	pending bool
	objects []domain.CreatedObjectRef

	teardownMu sync.Mutex
}

// Snapshot is a consistent copy of a page's conversational state.
type Snapshot struct {
	PageID   string                    `json:"page_id"`
	Session  domain.Session            `json:"session"`
	Pending  bool                      `json:"pending"`
	Messages []domain.Message          `json:"messages"`
	Objects  []domain.CreatedObjectRef `json:"objects"`
}

// New creates a widget in the Uninitialized state.
func New(opts Options) *Widget {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger = logger.With("page_id", opts.PageID)

	w := &Widget{
		id:          opts.PageID,
		persona:     opts.Persona,
		journal:     opts.Journal,
		logger:      logger,
		now:         now,
		log:         NewLog(),
		diagnostics: NewRecorder(opts.MaxDiagnostics, now),
		events:      newBroadcaster(logger),
		session:     domain.Session{Status: domain.SessionUninitialized},
	}
	w.client = &recordingClient{
		next: opts.Client,
		rec:  w.diagnostics,
		onRecord: func(rec domain.APICallRecord) {
			w.events.publish(Event{Type: EventDiagnostic, Call: &rec})
		},
	}
	return w
}

// ID returns the page identifier.
func (w *Widget) ID() string {
	return w.id
}

// Persona returns the persona the page was created with.
func (w *Widget) Persona() config.Persona {
	return w.persona
}

// Session returns the current session record.
func (w *Widget) Session() domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Pending reports whether a turn is awaiting a response.
func (w *Widget) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Messages returns the transcript in conversation order.
func (w *Widget) Messages() []domain.Message {
	return w.log.All()
}

// MessagesSince returns messages appended after the first n.
func (w *Widget) MessagesSince(n int) []domain.Message {
	return w.log.Since(n)
}

// Diagnostics returns outbound call records, most recent first.
func (w *Widget) Diagnostics() []domain.APICallRecord {
	return w.diagnostics.All()
}

// Objects returns the remote resources created by this page.
func (w *Widget) Objects() []domain.CreatedObjectRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.objects)
}

// Snapshot returns the full conversational state.
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	objects := slices.Clone(w.objects)
	if objects == nil {
		objects = []domain.CreatedObjectRef{}
	}
	return Snapshot{
		PageID:   w.id,
		Session:  w.session,
		Pending:  w.pending,
		Messages: w.log.All(),
		Objects:  objects,
	}
}

// Subscribe registers for state-change events. The returned function
// unsubscribes and closes the channel.
func (w *Widget) Subscribe(buffer int) (<-chan Event, func()) {
	return w.events.subscribe(buffer)
}

// SubscribeWithSnapshot atomically captures the current state and subscribes,
// so no message or state change falls between the snapshot and the first event.
func (w *Widget) SubscribeWithSnapshot(buffer int) (Snapshot, <-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	objects := slices.Clone(w.objects)
	if objects == nil {
		objects = []domain.CreatedObjectRef{}
	}
	snap := Snapshot{
		PageID:   w.id,
		Session:  w.session,
		Pending:  w.pending,
		Messages: w.log.All(),
		Objects:  objects,
	}
	ch, cancel := w.events.subscribe(buffer)
	return snap, ch, cancel
}

// Close ends all subscriptions. State remains readable.
func (w *Widget) Close() {
	w.events.close()
}

// appendLocked appends a transcript entry and notifies subscribers.
// Callers hold w.mu so that state transitions and transcript stay in step.
func (w *Widget) appendLocked(role domain.Role, content string) {
	msg := domain.NewMessage(role, content, w.now())
	w.log.Append(msg)
	w.events.publish(Event{Type: EventMessage, Message: &msg})
}

func (w *Widget) publishSessionLocked() {
	sess := w.session
	w.events.publish(Event{Type: EventSession, Session: &sess})
}

func (w *Widget) publishPendingLocked() {
	pending := w.pending
	w.events.publish(Event{Type: EventPending, Pending: &pending})
}

func (w *Widget) publishObjectsLocked() {
	w.events.publish(Event{Type: EventObjects, Objects: slices.Clone(w.objects)})
}
