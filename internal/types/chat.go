package types

import "time"

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// WelcomeMessageID is the reserved id for the synthetic first assistant
// message summarizing the analysis. At most one exists per session.
const WelcomeMessageID = "welcome"

type ChatMessage struct {
	ID         string    `json:"id"`
	Role       ChatRole  `json:"role"`
	Content    string    `json:"content"`
	Sources    []string  `json:"sources,omitempty"`
	IsError    bool      `json:"is_error,omitempty"`
	IsComplete bool      `json:"is_complete"`
	Timestamp  time.Time `json:"timestamp"`
}

func (m *ChatMessage) Welcome() bool {
	return m != nil && m.ID == WelcomeMessageID
}

// Sealed reports whether streaming into this message has finished.
func (m *ChatMessage) Sealed() bool {
	return m != nil && m.IsComplete
}

func CloneChatMessage(m *ChatMessage) *ChatMessage {
	if m == nil {
		return nil
	}
	out := *m
	if m.Sources != nil {
		out.Sources = append([]string{}, m.Sources...)
	}
	return &out
}

// ChatTurn is one prior exchange entry sent back to the backend as history.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
