package model

import "time"

// ChatSession is one entry of the session directory.
type ChatSession struct {
	ID                 string
	Title              string
	LastMessagePreview string
	LastTimestamp      time.Time
	// TaskStatus is empty when the session has no task.
	TaskStatus TaskStatus
}

func (s ChatSession) HasTask() bool { return s.TaskStatus != "" }

// HistoryItem is one element of the GET /chat/history payload.
type HistoryItem struct {
	SessionID string        `json:"sessionId,omitempty"`
	LegacyID  string        `json:"_id,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Task      *TaskMarker   `json:"task"`
}

// Session is the dev backend's persisted conversation.
type Session struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	TaskID    string        `json:"task_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Clone copies the message slice so storage callers never share it.
func (s Session) Clone() Session {
	s.Messages = append([]ChatMessage(nil), s.Messages...)
	return s
}
