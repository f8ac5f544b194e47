package widget

import (
	"log/slog"
	"sync"

	"github.com/ashureev/scripture-chat/internal/domain"
)

// EventType names a state change of a page.
type EventType string

const (
	EventSession    EventType = "session"
	EventMessage    EventType = "message"
	EventPending    EventType = "pending"
	EventDiagnostic EventType = "diagnostic"
	EventObjects    EventType = "objects"
)

// Event is a state-change notification for subscribers such as the UI.
type Event struct {
	Type    EventType                 `json:"type"`
	Session *domain.Session           `json:"session,omitempty"`
	Message *domain.Message           `json:"message,omitempty"`
	Pending *bool                     `json:"pending,omitempty"`
	Call    *domain.APICallRecord     `json:"call,omitempty"`
	Objects []domain.CreatedObjectRef `json:"objects,omitempty"`
}

// broadcaster fans events out to subscribers without ever blocking the
// publisher. Slow subscribers lose events and must resync from a snapshot.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	logger *slog.Logger
}

func newBroadcaster(logger *slog.Logger) *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event), logger: logger}
}

func (b *broadcaster) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropping widget event for slow subscriber", "subscriber", id, "type", ev.Type)
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
