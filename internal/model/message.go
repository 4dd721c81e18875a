package model

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry as the client renders it.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Emoji     string    `json:"emoji,omitempty"`
	// Pending marks an optimistic entry the server has not confirmed yet.
	Pending bool `json:"pending,omitempty"`
}

// ChatMessage is the backend's wire and storage shape of a message.
type ChatMessage struct {
	ID        string    `json:"_id,omitempty"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Emoji     string    `json:"emoji,omitempty"`
}

// SenderFromRole maps "assistant" to the AI sender and anything else to the user.
func SenderFromRole(role string) Sender {
	if role == RoleAssistant {
		return SenderAI
	}
	return SenderUser
}

func (m ChatMessage) ToMessage() Message {
	return Message{
		ID:        m.ID,
		Text:      m.Content,
		Sender:    SenderFromRole(m.Role),
		Timestamp: m.Timestamp,
		Emoji:     m.Emoji,
	}
}

// ToMessages converts wire messages preserving server order.
func ToMessages(wire []ChatMessage) []Message {
	out := make([]Message, 0, len(wire))
	for _, m := range wire {
		out = append(out, m.ToMessage())
	}
	return out
}
