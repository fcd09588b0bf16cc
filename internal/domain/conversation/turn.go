// Package conversation provides the bounded per-user context window used to
// give stateless provider calls conversational continuity.
package conversation

import (
	"time"

	domainerrors "github.com/jbctechsolutions/spendgate/internal/domain/errors"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a user's conversation history.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// NewUserTurn creates a user turn stamped with the current time.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantTurn creates an assistant turn stamped with the current time.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// Validate checks that the turn is well-formed.
func (t Turn) Validate() error {
	if t.Content == "" {
		return domainerrors.ErrEmptyMessage
	}
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return domainerrors.NewError(domainerrors.CodeValidation, "invalid turn role", nil)
	}
	return nil
}
