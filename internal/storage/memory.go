package storage

import (
	"sort"
	"sync"
	"time"

	"moodmate/internal/model"
)

type MemoryStorage struct {
	sessions map[string]*model.Session
	tasks    map[string]*model.Task
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.Session),
		tasks:    make(map[string]*model.Task),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Backup() error {
	return nil
}

func (m *MemoryStorage) CreateSession(session *model.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidData
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := session.Clone()
	m.sessions[session.ID] = &cp
	return nil
}

func (m *MemoryStorage) GetSession(sessionID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	cp := session.Clone()
	return &cp, nil
}

func (m *MemoryStorage) UpdateSession(session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return ErrSessionNotFound
	}

	cp := session.Clone()
	m.sessions[session.ID] = &cp
	return nil
}

// DeleteSession also drops the session's task.
func (m *MemoryStorage) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}

	if session.TaskID != "" {
		delete(m.tasks, session.TaskID)
	}
	delete(m.sessions, sessionID)
	return nil
}

// ListSessions returns every session, most recently updated first.
func (m *MemoryStorage) ListSessions() ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		cp := session.Clone()
		sessions = append(sessions, &cp)
	}

	sortByUpdated(sessions)
	return sessions, nil
}

func (m *MemoryStorage) AddMessage(sessionID string, message *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = touch(message.Timestamp)
	return nil
}

func (m *MemoryStorage) GetMessages(sessionID string) ([]model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return append([]model.ChatMessage{}, session.Messages...), nil
}

// SaveTask upserts task and links it to its session.
func (m *MemoryStorage) SaveTask(task *model.Task) error {
	if task == nil || task.ID == "" {
		return ErrInvalidData
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[task.SessionID]
	if !exists {
		return ErrSessionNotFound
	}

	cp := task.Clone()
	m.tasks[task.ID] = &cp
	session.TaskID = task.ID
	return nil
}

func (m *MemoryStorage) GetTask(taskID string) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[taskID]
	if !exists {
		return nil, ErrTaskNotFound
	}
	cp := task.Clone()
	return &cp, nil
}

func (m *MemoryStorage) GetTaskBySession(sessionID string) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	task, exists := m.tasks[session.TaskID]
	if !exists {
		return nil, ErrTaskNotFound
	}
	cp := task.Clone()
	return &cp, nil
}

func sortByUpdated(sessions []*model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

func touch(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now()
	}
	return at
}
