package domain

import "time"

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser        Role = "user"
	RoleAgent       Role = "agent"
	RoleSystemError Role = "error"
)

// Message is an immutable transcript entry.
type Message struct {
	Role      Role      `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewMessage builds a message stamped with the given time.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{Role: role, Content: content, CreatedAt: at.UTC()}
}
