package model

import (
	"bytes"
	"encoding/json"
	"time"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// Rank orders statuses along the forward-only lifecycle; unknown values rank -1.
func (s TaskStatus) Rank() int {
	switch s {
	case TaskPending:
		return 0
	case TaskInProgress:
		return 1
	case TaskCompleted:
		return 2
	default:
		return -1
	}
}

func (s TaskStatus) Valid() bool { return s.Rank() >= 0 }

type Category string

const (
	CategoryBreathing   Category = "breathing"
	CategoryJournaling  Category = "journaling"
	CategoryMindfulness Category = "mindfulness"
	CategoryMovement    Category = "movement"
)

type TaskStep struct {
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

// Task is a wellness exercise generated for one session.
type Task struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      Category   `json:"category"`
	Status        TaskStatus `json:"status"`
	Steps         []TaskStep `json:"steps"`
	SessionID     string     `json:"sessionId"`
	EstimatedTime string     `json:"estimatedTime,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// UnmarshalJSON accepts both `_id` and `id`, and `type` as an alias of `category`.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		plain
		AltID   string   `json:"id"`
		AltType Category `json:"type"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Task(aux.plain)
	if t.ID == "" {
		t.ID = aux.AltID
	}
	if t.Category == "" {
		t.Category = aux.AltType
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	return nil
}

// Clone deep-copies the step slice so callers can mutate freely.
func (t Task) Clone() Task {
	out := t
	if t.Steps != nil {
		out.Steps = make([]TaskStep, len(t.Steps))
		copy(out.Steps, t.Steps)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// TaskMarker is the history entry's `task` field. The backend sends either the
// status string, a task object, or null.
type TaskMarker struct {
	Status TaskStatus
}

func (m TaskMarker) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m.Status))
}

func (m *TaskMarker) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		m.Status = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		m.Status = TaskStatus(s)
		return nil
	}
	var obj struct {
		Status TaskStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	m.Status = obj.Status
	if m.Status == "" {
		m.Status = TaskPending
	}
	return nil
}
