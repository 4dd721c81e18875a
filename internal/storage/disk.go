package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"moodmate/internal/model"
	"moodmate/pkg/logger"
)

// DiskStorage keeps one JSON file per session, message list and task, plus a
// sessions.json index. Writes go through a temp file and rename.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Session
	cacheSize int
}

type SessionIndex struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Session),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadSessions(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "sessions"),
		filepath.Join(d.dataDir, "messages"),
		filepath.Join(d.dataDir, "tasks"),
		filepath.Join(d.dataDir, "backup"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// loadSessions warms the cache from the index, newest first.
func (d *DiskStorage) loadSessions() error {
	indexes, err := d.readIndex()
	if errors.Is(err, os.ErrNotExist) {
		return writeJSON(d.indexPath(), []*SessionIndex{})
	}
	if err != nil {
		return err
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].UpdatedAt.After(indexes[j].UpdatedAt)
	})

	for _, index := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}

		session, err := d.loadSessionFromFile(index.ID)
		if err != nil {
			logger.Errorf("Failed to load session %s: %v", index.ID, err)
			continue
		}

		d.cache[index.ID] = session
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "sessions.json")
}

func (d *DiskStorage) sessionPath(id string) string {
	return filepath.Join(d.dataDir, "sessions", id+".json")
}

func (d *DiskStorage) messagesPath(id string) string {
	return filepath.Join(d.dataDir, "messages", id+".json")
}

func (d *DiskStorage) taskPath(id string) string {
	return filepath.Join(d.dataDir, "tasks", id+".json")
}

func (d *DiskStorage) readIndex() ([]*SessionIndex, error) {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		return nil, err
	}

	var indexes []*SessionIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return indexes, nil
}

func (d *DiskStorage) loadSessionFromFile(sessionID string) (*model.Session, error) {
	data, err := os.ReadFile(d.sessionPath(sessionID))
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	messages, err := d.loadMessagesFromFile(sessionID)
	if err != nil {
		logger.Errorf("Failed to load messages for session %s: %v", sessionID, err)
		messages = []model.ChatMessage{}
	}

	session.Messages = messages
	return &session, nil
}

func (d *DiskStorage) loadMessagesFromFile(sessionID string) ([]model.ChatMessage, error) {
	data, err := os.ReadFile(d.messagesPath(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (d *DiskStorage) saveSessionToFile(session *model.Session) error {
	sessionData := *session
	sessionData.Messages = nil
	return writeJSON(d.sessionPath(session.ID), sessionData)
}

func (d *DiskStorage) persist(session *model.Session) error {
	if err := d.saveSessionToFile(session); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := writeJSON(d.messagesPath(session.ID), session.Messages); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := d.updateSessionIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// cached returns the live cached session, loading it from disk on a miss.
// Callers hold d.mu for writing.
func (d *DiskStorage) cached(sessionID string) (*model.Session, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return nil, ErrSessionNotFound
	}
	if session, exists := d.cache[sessionID]; exists {
		return session, nil
	}

	session, err := d.loadSessionFromFile(sessionID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[sessionID] = session
	d.evictCache(sessionID)
	return session, nil
}

func (d *DiskStorage) CreateSession(session *model.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidData
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := session.Clone()
	if err := d.persist(&cp); err != nil {
		return err
	}

	d.cache[cp.ID] = &cp
	d.evictCache(cp.ID)

	return nil
}

func (d *DiskStorage) GetSession(sessionID string) (*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.cached(sessionID)
	if err != nil {
		return nil, err
	}
	cp := session.Clone()
	return &cp, nil
}

func (d *DiskStorage) UpdateSession(session *model.Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.cached(session.ID); err != nil {
		return err
	}

	cp := session.Clone()
	if err := d.persist(&cp); err != nil {
		return err
	}

	d.cache[cp.ID] = &cp
	return nil
}

// DeleteSession removes the session, its messages and its task.
func (d *DiskStorage) DeleteSession(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.cached(sessionID)
	if err != nil {
		return err
	}

	paths := []string{d.sessionPath(sessionID), d.messagesPath(sessionID)}
	if session.TaskID != "" {
		paths = append(paths, d.taskPath(session.TaskID))
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	delete(d.cache, sessionID)

	return d.updateSessionIndex()
}

// ListSessions returns every indexed session with its messages, newest first.
func (d *DiskStorage) ListSessions() ([]*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	indexes, err := d.readIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	sessions := make([]*model.Session, 0, len(indexes))
	for _, index := range indexes {
		session, err := d.cached(index.ID)
		if err != nil {
			logger.Warnf("Skipping session %s: %v", index.ID, err)
			continue
		}
		cp := session.Clone()
		sessions = append(sessions, &cp)
	}

	sortByUpdated(sessions)
	return sessions, nil
}

func (d *DiskStorage) AddMessage(sessionID string, message *model.ChatMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.cached(sessionID)
	if err != nil {
		return err
	}

	session.Messages = append(session.Messages, *message)
	session.UpdatedAt = touch(message.Timestamp)

	return d.persist(session)
}

func (d *DiskStorage) GetMessages(sessionID string) ([]model.ChatMessage, error) {
	session, err := d.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

// SaveTask writes the task file and links the task to its session.
func (d *DiskStorage) SaveTask(task *model.Task) error {
	if task == nil || task.ID == "" {
		return ErrInvalidData
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.cached(task.SessionID)
	if err != nil {
		return err
	}

	if err := writeJSON(d.taskPath(task.ID), task); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if session.TaskID != task.ID {
		session.TaskID = task.ID
		return d.persist(session)
	}
	return nil
}

func (d *DiskStorage) GetTask(taskID string) (*model.Task, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readTask(taskID)
}

func (d *DiskStorage) readTask(taskID string) (*model.Task, error) {
	if taskID == "" || strings.ContainsAny(taskID, `/\`) {
		return nil, ErrTaskNotFound
	}
	data, err := os.ReadFile(d.taskPath(taskID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &task, nil
}

func (d *DiskStorage) GetTaskBySession(sessionID string) (*model.Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, err := d.cached(sessionID)
	if err != nil {
		return nil, err
	}
	return d.readTask(session.TaskID)
}

func (d *DiskStorage) updateSessionIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "sessions"))
	if err != nil {
		return err
	}

	indexes := make([]*SessionIndex, 0, len(files))
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		sessionID := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(d.dataDir, "sessions", file.Name()))
		if err != nil {
			logger.Errorf("Failed to read session %s for index update: %v", sessionID, err)
			continue
		}
		var session model.Session
		if err := json.Unmarshal(data, &session); err != nil {
			logger.Errorf("Failed to decode session %s for index update: %v", sessionID, err)
			continue
		}

		indexes = append(indexes, &SessionIndex{
			ID:        session.ID,
			TaskID:    session.TaskID,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}

	return writeJSON(d.indexPath(), indexes)
}

// evictCache drops the least recently updated sessions beyond cacheSize,
// never the one just touched.
func (d *DiskStorage) evictCache(keep string) {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id        string
		updatedAt time.Time
	}

	var entries []cacheEntry
	for id, session := range d.cache {
		if id == keep {
			continue
		}
		entries = append(entries, cacheEntry{
			id:        id,
			updatedAt: session.UpdatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict && i < len(entries); i++ {
		delete(d.cache, entries[i].id)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Session)
	return nil
}

// Backup copies sessions, messages, tasks and the index into
// backup/backup_<unix>.
func (d *DiskStorage) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().Unix()))

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	for _, dir := range []string{"sessions", "messages", "tasks"} {
		srcDir := filepath.Join(d.dataDir, dir)
		dstDir := filepath.Join(backupDir, dir)

		if err := os.MkdirAll(dstDir, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}

		if err := copyDir(srcDir, dstDir); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	if err := copyFile(d.indexPath(), filepath.Join(backupDir, "sessions.json")); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return nil
}

func copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, file.Name()), filepath.Join(dst, file.Name())); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0644)
}
