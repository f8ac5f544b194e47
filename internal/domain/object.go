package domain

import "time"

// ObjectType is the kind of remote resource a page created.
type ObjectType string

// ObjectTypeAgent is a remote conversational agent instance.
const ObjectTypeAgent ObjectType = "agent"

// CreatedObjectRef points at a remote resource for bulk cleanup.
type CreatedObjectRef struct {
	Type      ObjectType `json:"type"`
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsAgent returns true if the ref points at an agent.
func (r CreatedObjectRef) IsAgent() bool {
	return r.Type == ObjectTypeAgent
}
