// Package memory implements the process-wide short-term conversation
// memory. The log keeps the active conversation in full fidelity up to a
// configured retention cap; it is intentionally ephemeral and resets when
// the process restarts.
package memory

import "time"

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is a single exchanged message. Turns are immutable once appended.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
