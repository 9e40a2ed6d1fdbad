package chat

import (
	"time"

	"github.com/samber/lo"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind distinguishes ordinary turns from quiz turns.
type Kind string

const (
	KindPlain Kind = "plain"
	KindQuiz  Kind = "quiz"
)

// Message is one turn in a session's conversation. CreatedAt is stamped
// once when the message is appended and is used only for windowing;
// insertion order is the ordering guarantee.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Kind      Kind        `json:"kind"`
	Quiz      *QuizRecord `json:"-"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Turn is the (role, content) pair handed to the QA engine as context.
type Turn struct {
	Role    Role
	Content string
}

// Turns projects a history onto the QA engine's conversational context,
// keeping only user and assistant turns.
func Turns(messages []Message) []Turn {
	return lo.FilterMap(messages, func(m Message, _ int) (Turn, bool) {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return Turn{}, false
		}
		return Turn{Role: m.Role, Content: m.Content}, true
	})
}
