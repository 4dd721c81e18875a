package storage

import (
	"fmt"

	"moodmate/internal/config"
	"moodmate/internal/model"
)

// Storage persists dev backend sessions, their messages and their tasks.
// Returned values are copies; mutate and write them back with Update*/Save*.
type Storage interface {
	// 会话管理
	CreateSession(session *model.Session) error
	GetSession(sessionID string) (*model.Session, error)
	UpdateSession(session *model.Session) error
	DeleteSession(sessionID string) error
	ListSessions() ([]*model.Session, error)

	// 消息管理
	AddMessage(sessionID string, message *model.ChatMessage) error
	GetMessages(sessionID string) ([]model.ChatMessage, error)

	// 任务管理
	SaveTask(task *model.Task) error
	GetTask(taskID string) (*model.Task, error)
	GetTaskBySession(sessionID string) (*model.Task, error)

	// 存储管理
	Init() error
	Close() error
	Backup() error
}

// New builds and initialises the backend named by cfg.Type.
func New(cfg config.StorageConfig) (Storage, error) {
	var store Storage
	switch cfg.Type {
	case "", "memory":
		store = NewMemoryStorage()
	case "disk":
		store = NewDiskStorage(cfg.DataDir, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", ErrStorageInit, cfg.Type)
	}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}
