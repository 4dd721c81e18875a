package service

import (
	"errors"
	"fmt"
	"time"

	"moodmate/internal/model"
	"moodmate/internal/storage"
	"moodmate/pkg/logger"
)

var ErrTaskSessionMismatch = errors.New("task does not belong to session")

type TaskService struct {
	storage storage.Storage
	now     func() time.Time
}

func NewTaskService(store storage.Storage) *TaskService {
	return &TaskService{storage: store, now: time.Now}
}

// ForSession returns the session's task, or nil when it has none.
func (s *TaskService) ForSession(sessionID string) (*model.Task, error) {
	task, err := s.storage.GetTaskBySession(sessionID)
	if errors.Is(err, storage.ErrTaskNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Complete marks the task completed. Completing it again is a no-op that
// returns the stored task.
func (s *TaskService) Complete(taskID, sessionID string) (*model.Task, error) {
	task, err := s.storage.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if sessionID != "" && task.SessionID != sessionID {
		return nil, ErrTaskSessionMismatch
	}
	if task.Status == model.TaskCompleted {
		return task, nil
	}

	at := s.now()
	task.Status = model.TaskCompleted
	task.CompletedAt = &at
	if err := s.storage.SaveTask(task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	logger.Infof("Task %s completed for session %s", task.ID, task.SessionID)
	return task, nil
}
