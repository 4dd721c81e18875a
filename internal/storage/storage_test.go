package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodmate/internal/config"
	"moodmate/internal/model"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]func() Storage {
	return map[string]func() Storage{
		"memory": func() Storage { return NewMemoryStorage() },
		"disk": func() Storage {
			d := NewDiskStorage(t.TempDir(), 2)
			require.NoError(t, d.Init())
			return d
		},
	}
}

func newSession(id string, at time.Time) *model.Session {
	return &model.Session{ID: id, CreatedAt: at, UpdatedAt: at}
}

func TestStorageSessionLifecycle(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			require.NoError(t, s.CreateSession(newSession("a", t0)))
			require.NoError(t, s.CreateSession(newSession("b", t0.Add(time.Minute))))

			require.NoError(t, s.AddMessage("a", &model.ChatMessage{ID: "m1", Content: "hi", Role: model.RoleUser, Timestamp: t0.Add(time.Hour)}))
			require.NoError(t, s.AddMessage("a", &model.ChatMessage{ID: "m2", Content: "hello", Role: model.RoleAssistant, Timestamp: t0.Add(time.Hour)}))

			msgs, err := s.GetMessages("a")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "hello", msgs[1].Content)

			list, err := s.ListSessions()
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "a", list[0].ID, "most recently updated first")
			assert.Len(t, list[0].Messages, 2)

			_, err = s.GetSession("missing")
			assert.ErrorIs(t, err, ErrSessionNotFound)
			assert.ErrorIs(t, s.AddMessage("missing", &model.ChatMessage{}), ErrSessionNotFound)

			require.NoError(t, s.DeleteSession("b"))
			assert.ErrorIs(t, s.DeleteSession("b"), ErrSessionNotFound)
			list, err = s.ListSessions()
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestStorageReturnsCopies(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			require.NoError(t, s.CreateSession(newSession("a", t0)))
			require.NoError(t, s.AddMessage("a", &model.ChatMessage{ID: "m1", Content: "hi"}))

			got, err := s.GetSession("a")
			require.NoError(t, err)
			got.Messages[0].Content = "mutated"

			again, err := s.GetSession("a")
			require.NoError(t, err)
			assert.Equal(t, "hi", again.Messages[0].Content)
		})
	}
}

func TestStorageTasks(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk()
			require.NoError(t, s.CreateSession(newSession("a", t0)))

			_, err := s.GetTaskBySession("a")
			assert.ErrorIs(t, err, ErrTaskNotFound)

			task := &model.Task{
				ID:        "t1",
				Title:     "Box breathing",
				Category:  model.CategoryBreathing,
				Status:    model.TaskPending,
				SessionID: "a",
				Steps:     []model.TaskStep{{Label: "Inhale"}},
				CreatedAt: t0,
			}
			require.NoError(t, s.SaveTask(task))

			got, err := s.GetTaskBySession("a")
			require.NoError(t, err)
			assert.Equal(t, "Box breathing", got.Title)

			sess, err := s.GetSession("a")
			require.NoError(t, err)
			assert.Equal(t, "t1", sess.TaskID)

			got.Status = model.TaskCompleted
			require.NoError(t, s.SaveTask(got))
			byID, err := s.GetTask("t1")
			require.NoError(t, err)
			assert.Equal(t, model.TaskCompleted, byID.Status)

			orphan := *task
			orphan.ID, orphan.SessionID = "t2", "missing"
			assert.ErrorIs(t, s.SaveTask(&orphan), ErrSessionNotFound)

			require.NoError(t, s.DeleteSession("a"))
			_, err = s.GetTask("t1")
			assert.ErrorIs(t, err, ErrTaskNotFound)
		})
	}
}

func TestDiskStorageSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	d := NewDiskStorage(dir, 10)
	require.NoError(t, d.Init())
	require.NoError(t, d.CreateSession(newSession("a", t0)))
	require.NoError(t, d.AddMessage("a", &model.ChatMessage{ID: "m1", Content: "persisted", Timestamp: t0}))
	require.NoError(t, d.SaveTask(&model.Task{ID: "t1", SessionID: "a", Status: model.TaskInProgress}))
	require.NoError(t, d.Close())

	reopened := NewDiskStorage(dir, 10)
	require.NoError(t, reopened.Init())

	msgs, err := reopened.GetMessages("a")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Content)

	task, err := reopened.GetTaskBySession("a")
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, task.Status)
}

func TestDiskStorageEvictsAndReloads(t *testing.T) {
	d := NewDiskStorage(t.TempDir(), 1)
	require.NoError(t, d.Init())
	require.NoError(t, d.CreateSession(newSession("a", t0)))
	require.NoError(t, d.CreateSession(newSession("b", t0.Add(time.Minute))))

	assert.Len(t, d.cache, 1)
	got, err := d.GetSession("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestDiskStorageRejectsPathIDs(t *testing.T) {
	d := NewDiskStorage(t.TempDir(), 4)
	require.NoError(t, d.Init())

	_, err := d.GetSession("../sessions")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = d.GetTask("../../etc")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDiskStorageBackup(t *testing.T) {
	dir := t.TempDir()
	d := NewDiskStorage(dir, 4)
	require.NoError(t, d.Init())
	require.NoError(t, d.CreateSession(newSession("a", t0)))
	require.NoError(t, d.SaveTask(&model.Task{ID: "t1", SessionID: "a"}))

	require.NoError(t, d.Backup())

	entries, err := os.ReadDir(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	root := filepath.Join(dir, "backup", entries[0].Name())
	assert.FileExists(t, filepath.Join(root, "sessions.json"))
	assert.FileExists(t, filepath.Join(root, "sessions", "a.json"))
	assert.FileExists(t, filepath.Join(root, "tasks", "t1.json"))
}

func TestNewSelectsBackend(t *testing.T) {
	mem, err := New(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, mem)

	disk, err := New(config.StorageConfig{Type: "disk", DataDir: t.TempDir(), CacheSize: 4})
	require.NoError(t, err)
	assert.IsType(t, &DiskStorage{}, disk)

	_, err = New(config.StorageConfig{Type: "redis"})
	assert.ErrorIs(t, err, ErrStorageInit)
}
