package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodmate/internal/model"
)

func msg(id, text string, sender model.Sender) model.Message {
	return model.Message{ID: id, Text: text, Sender: sender, Timestamp: time.Unix(0, 0)}
}

func TestAppendDoesNotMutateReceiver(t *testing.T) {
	base := New(msg("1", "hello", model.SenderAI))
	next := base.Append(msg("2", "hi", model.SenderUser))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())

	last, ok := next.Last()
	require.True(t, ok)
	assert.Equal(t, "2", last.ID)
}

func TestAppendAfterSharedPrefixIsIsolated(t *testing.T) {
	base := New(msg("1", "a", model.SenderAI))
	left := base.Append(msg("L", "left", model.SenderUser))
	right := base.Append(msg("R", "right", model.SenderUser))

	l, _ := left.Last()
	r, _ := right.Last()
	assert.Equal(t, "L", l.ID)
	assert.Equal(t, "R", r.ID)
}

func TestReplaceSwapsWholeSequence(t *testing.T) {
	pending := msg("tmp", "I feel anxious", model.SenderUser)
	pending.Pending = true
	s := New(msg("g", "greeting", model.SenderAI)).Append(pending)
	require.Equal(t, 1, s.PendingCount())

	server := []model.Message{
		msg("u1", "I feel anxious", model.SenderUser),
		msg("a1", "Let's breathe together.", model.SenderAI),
	}
	s = s.Replace(server)

	assert.Equal(t, server, s.Messages())
	assert.Zero(t, s.PendingCount())

	server[0].Text = "mutated"
	assert.Equal(t, "I feel anxious", s.Messages()[0].Text)
}

func TestEmptyStore(t *testing.T) {
	s := New()
	_, ok := s.Last()
	assert.False(t, ok)
	assert.Empty(t, s.Messages())
	assert.Zero(t, s.Append(msg("1", "x", model.SenderUser)).Clear().Len())
}
