package widget

import (
	"sync"

	"github.com/ashureev/scripture-chat/internal/domain"
)

// Log is the append-only transcript of a page. Append order is display order.
type Log struct {
	mu       sync.RWMutex
	messages []domain.Message
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message to the end of the transcript and returns the new length.
func (l *Log) Append(msg domain.Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	return len(l.messages)
}

// All returns a copy of the transcript in conversation order.
func (l *Log) All() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Since returns the messages appended after the first n, for incremental rendering.
func (l *Log) Since(n int) []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.messages) {
		return []domain.Message{}
	}
	out := make([]domain.Message, len(l.messages)-n)
	copy(out, l.messages[n:])
	return out
}

// Len returns the number of messages in the transcript.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
