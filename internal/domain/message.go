// Package domain defines the persistent chat entities shared across the service.
package domain

import "time"

// Role identifies the sender of a message.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
)

// Message is a single persisted conversation turn. Messages are immutable
// once written and always reference an existing session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
