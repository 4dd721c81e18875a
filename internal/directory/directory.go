// Package directory keeps the list of past chat sessions for selection.
package directory

import (
	"context"
	"sync"

	"moodmate/internal/model"
	"moodmate/pkg/logger"
)

const (
	UntitledTitle = "Untitled Chat"
	previewLimit  = 48
)

// Source lists the raw history entries.
type Source interface {
	ListSessions(ctx context.Context) ([]model.HistoryItem, error)
}

// Directory is read-only to the rest of the client: only Refresh replaces entries.
type Directory struct {
	src Source

	mu      sync.RWMutex
	entries []model.ChatSession
	loading bool
	loaded  bool
}

func New(src Source) *Directory {
	return &Directory{src: src}
}

// Refresh replaces the entries with a fresh fetch. On failure the directory is
// left empty and the error is returned for logging only.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	items, err := d.src.ListSessions(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	d.loaded = true
	if err != nil {
		logger.Warnf("Failed to load chat history: %v", err)
		d.entries = nil
		return err
	}
	d.entries = MapHistory(items)
	return nil
}

func (d *Directory) Entries() []model.ChatSession {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.ChatSession, len(d.entries))
	copy(out, d.entries)
	return out
}

func (d *Directory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

func (d *Directory) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Lookup finds an entry by id.
func (d *Directory) Lookup(id string) (model.ChatSession, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range d.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.ChatSession{}, false
}

// MapHistory turns history items into directory entries: the first message is
// the title, the chronologically last one the preview.
func MapHistory(items []model.HistoryItem) []model.ChatSession {
	out := make([]model.ChatSession, 0, len(items))
	for _, item := range items {
		entry := model.ChatSession{
			ID:            item.SessionID,
			Title:         UntitledTitle,
			LastTimestamp: item.UpdatedAt,
		}
		if entry.ID == "" {
			entry.ID = item.LegacyID
		}
		if n := len(item.Messages); n > 0 {
			entry.Title = item.Messages[0].Content
			last := item.Messages[n-1]
			entry.LastMessagePreview = truncateString(last.Content, previewLimit)
			entry.LastTimestamp = last.Timestamp
		}
		if item.Task != nil {
			entry.TaskStatus = item.Task.Status
		}
		out = append(out, entry)
	}
	return out
}

func truncateString(str string, maxLen int) string {
	runes := []rune(str)
	if len(runes) <= maxLen {
		return str
	}
	return string(runes[:maxLen]) + "..."
}
