package directory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodmate/internal/model"
)

type stubSource struct {
	items []model.HistoryItem
	err   error
	calls int
}

func (s *stubSource) ListSessions(context.Context) ([]model.HistoryItem, error) {
	s.calls++
	return s.items, s.err
}

func TestMapHistoryFirstAndLastMessage(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	got := MapHistory([]model.HistoryItem{{
		SessionID: "s1",
		Messages: []model.ChatMessage{
			{Content: "Hi", Timestamp: t0},
			{Content: "Bye", Timestamp: t1},
		},
	}})

	require.Len(t, got, 1)
	assert.Equal(t, model.ChatSession{
		ID:                 "s1",
		Title:              "Hi",
		LastMessagePreview: "Bye",
		LastTimestamp:      t1,
	}, got[0])
	assert.False(t, got[0].HasTask())
}

func TestMapHistoryFallbacks(t *testing.T) {
	updated := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	got := MapHistory([]model.HistoryItem{{
		LegacyID:  "legacy",
		UpdatedAt: updated,
		Task:      &model.TaskMarker{Status: model.TaskCompleted},
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "legacy", got[0].ID)
	assert.Equal(t, UntitledTitle, got[0].Title)
	assert.Empty(t, got[0].LastMessagePreview)
	assert.Equal(t, updated, got[0].LastTimestamp)
	assert.Equal(t, model.TaskCompleted, got[0].TaskStatus)
}

func TestMapHistoryTruncatesPreview(t *testing.T) {
	long := strings.Repeat("é", 60)
	got := MapHistory([]model.HistoryItem{{
		SessionID: "s",
		Messages:  []model.ChatMessage{{Content: long}},
	}})

	assert.Equal(t, long, got[0].Title)
	assert.Equal(t, strings.Repeat("é", 48)+"...", got[0].LastMessagePreview)
}

func TestRefreshAndLookup(t *testing.T) {
	src := &stubSource{items: []model.HistoryItem{
		{SessionID: "a", Messages: []model.ChatMessage{{Content: "first"}}},
		{SessionID: "b"},
	}}
	d := New(src)
	assert.False(t, d.Loaded())

	require.NoError(t, d.Refresh(context.Background()))
	assert.True(t, d.Loaded())
	assert.False(t, d.Loading())
	assert.Len(t, d.Entries(), 2)

	entry, ok := d.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "first", entry.Title)

	_, ok = d.Lookup("zzz")
	assert.False(t, ok)
}

func TestRefreshFailureLeavesEmptyList(t *testing.T) {
	src := &stubSource{items: []model.HistoryItem{{SessionID: "a"}}}
	d := New(src)
	require.NoError(t, d.Refresh(context.Background()))
	require.Len(t, d.Entries(), 1)

	src.err = errors.New("offline")
	err := d.Refresh(context.Background())
	assert.Error(t, err)
	assert.Empty(t, d.Entries())
	assert.True(t, d.Loaded())
}

func TestEntriesReturnsCopy(t *testing.T) {
	d := New(&stubSource{items: []model.HistoryItem{{SessionID: "a"}}})
	require.NoError(t, d.Refresh(context.Background()))

	entries := d.Entries()
	entries[0].Title = "changed"
	assert.Equal(t, UntitledTitle, d.Entries()[0].Title)
}
