package controller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodmate/internal/model"
)

func greeting() model.Message {
	return model.Message{ID: "g", Text: Greeting(""), Sender: model.SenderAI, Timestamp: t0}
}

func mustReduce(t *testing.T, s State, ev Event) (State, []Effect) {
	t.Helper()
	next, effects, err := Reduce(s, ev)
	require.NoError(t, err, ev.eventName())
	return next, effects
}

func activeState(t *testing.T, id string, task *model.Task) State {
	t.Helper()
	s, _ := mustReduce(t, State{}, Reset{Greeting: greeting()})
	s, _ = mustReduce(t, s, Select{SessionID: id})
	s, _ = mustReduce(t, s, TranscriptLoaded{Tag: s.Tag(), Messages: []model.Message{userMsg("m1", "hi")}})
	s, _ = mustReduce(t, s, TaskLoaded{Tag: s.Tag(), Task: task})
	return s
}

func TestReduceSelectEmitsBothFetches(t *testing.T) {
	s, _ := mustReduce(t, State{}, Reset{Greeting: greeting()})
	next, effects := mustReduce(t, s, Select{SessionID: "s1"})

	assert.Equal(t, PhaseLoading, next.Phase)
	assert.Equal(t, s.Epoch+1, next.Epoch)
	assert.Zero(t, next.Transcript.Len())
	tag := Tag{SessionID: "s1", Epoch: next.Epoch}
	assert.Equal(t, []Effect{FetchTranscript{Tag: tag}, FetchTask{Tag: tag}}, effects)
}

func TestReduceTaskBeforeTranscriptStaysLoading(t *testing.T) {
	s, _ := mustReduce(t, State{}, Select{SessionID: "s1"})
	s, _ = mustReduce(t, s, TaskLoaded{Tag: s.Tag(), Task: breathingTask("s1", model.TaskPending)})

	assert.Equal(t, PhaseLoading, s.Phase)
	assert.False(t, s.Task.Empty())

	s, _ = mustReduce(t, s, TranscriptLoaded{Tag: s.Tag()})
	assert.Equal(t, PhaseActive, s.Phase)
}

func TestReduceRejectsStaleResults(t *testing.T) {
	s, _ := mustReduce(t, State{}, Select{SessionID: "A"})
	old := s.Tag()
	s, _ = mustReduce(t, s, Select{SessionID: "B"})

	stale := []Event{
		TranscriptLoaded{Tag: old, Messages: []model.Message{userMsg("a", "A")}},
		TaskLoaded{Tag: old, Task: breathingTask("A", model.TaskPending)},
		SendCompleted{Tag: old, Outcome: &model.SendOutcome{SessionID: "A"}},
		CompletionFinished{Tag: old, TaskID: "task-A"},
	}
	for _, ev := range stale {
		next, effects, err := Reduce(s, ev)
		assert.ErrorIs(t, err, ErrStaleResult, ev.eventName())
		assert.Nil(t, effects)
		assert.Equal(t, s, next)
	}
}

func TestReduceSendGuards(t *testing.T) {
	s, _ := mustReduce(t, State{}, Reset{Greeting: greeting()})

	_, _, err := Reduce(s, Send{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	sending, effects := mustReduce(t, s, Send{Text: "hello", Message: model.Message{ID: "u1"}})
	require.Len(t, effects, 1)
	assert.Equal(t, SendMessage{Tag: Tag{Epoch: s.Epoch}, Text: "hello"}, effects[0])

	_, _, err = Reduce(sending, Send{Text: "again"})
	assert.ErrorIs(t, err, ErrSendInFlight)

	loading, _ := mustReduce(t, s, Select{SessionID: "s1"})
	_, _, err = Reduce(loading, Send{Text: "early"})
	assert.ErrorIs(t, err, ErrSessionLoading)
}

func TestReduceSendPreservesTextVerbatim(t *testing.T) {
	s, _ := mustReduce(t, State{}, Reset{Greeting: greeting()})
	s, effects := mustReduce(t, s, Send{Text: "  padded  ", Message: model.Message{ID: "u1"}})

	last, ok := s.Transcript.Last()
	require.True(t, ok)
	assert.Equal(t, "  padded  ", last.Text)
	assert.Equal(t, "  padded  ", effects[0].(SendMessage).Text)
}

func TestReduceSendFailureInBoundSessionReturnsToActive(t *testing.T) {
	s := activeState(t, "s1", nil)
	s, _ = mustReduce(t, s, Send{Text: "x", Message: model.Message{ID: "u"}})
	s, _ = mustReduce(t, s, SendCompleted{Tag: s.Tag(), Err: errors.New("down")})

	assert.Equal(t, PhaseActive, s.Phase)
	assert.Equal(t, 2, s.Transcript.Len())
	assert.Equal(t, 1, s.Transcript.PendingCount())
}

func TestReduceEmptyResponseReplacesTranscript(t *testing.T) {
	s := activeState(t, "s1", nil)
	s, _ = mustReduce(t, s, Send{Text: "x", Message: model.Message{ID: "u"}})
	s, _ = mustReduce(t, s, SendCompleted{Tag: s.Tag(), Outcome: &model.SendOutcome{SessionID: "s1"}})

	assert.Zero(t, s.Transcript.Len())
	assert.Equal(t, PhaseActive, s.Phase)
}

func TestReduceGeneratedTaskReplacesBinding(t *testing.T) {
	s := activeState(t, "s1", breathingTask("s1", model.TaskCompleted))
	s, _ = mustReduce(t, s, Send{Text: "x", Message: model.Message{ID: "u"}})

	next := breathingTask("s1", model.TaskPending)
	next.ID = "task-2"
	s, _ = mustReduce(t, s, SendCompleted{Tag: s.Tag(), Outcome: &model.SendOutcome{
		SessionID:    "s1",
		GenerateTask: true,
		Task:         next,
	}})

	assert.Equal(t, "task-2", s.Task.TaskID())
	assert.True(t, s.Task.Visible())
}

func TestReduceCompletionLifecycle(t *testing.T) {
	s := activeState(t, "s1", breathingTask("s1", model.TaskPending))

	busy, effects := mustReduce(t, s, SetTaskStatus{TaskID: "task-s1", Status: model.TaskCompleted})
	assert.True(t, busy.Completing())
	assert.Equal(t, []Effect{CompleteTask{Tag: s.Tag(), TaskID: "task-s1"}}, effects)

	_, _, err := Reduce(busy, SetTaskStatus{TaskID: "task-s1", Status: model.TaskCompleted})
	assert.ErrorIs(t, err, ErrCompletionInFlight)

	failed, effects := mustReduce(t, busy, CompletionFinished{Tag: s.Tag(), TaskID: "task-s1", At: t0, Err: errors.New("nope")})
	assert.Equal(t, []Effect{Alert{Message: completionFailedAlert}}, effects)
	task, _ := failed.Task.Task()
	assert.Equal(t, model.TaskPending, task.Status)
	assert.False(t, failed.Completing())

	done, effects := mustReduce(t, busy, CompletionFinished{Tag: s.Tag(), TaskID: "task-s1", At: t0})
	task, _ = done.Task.Task()
	assert.Equal(t, model.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.True(t, done.Celebrating)
	assert.Equal(t, []Effect{Celebrate{Seq: done.CelebrationSeq}}, effects)

	again, effects := mustReduce(t, done, SetTaskStatus{TaskID: "task-s1", Status: model.TaskCompleted})
	assert.Empty(t, effects)
	assert.Equal(t, done, again)

	_, _, err = Reduce(done, CelebrationEnded{Seq: done.CelebrationSeq - 1})
	assert.ErrorIs(t, err, ErrStaleResult)
	ended, _ := mustReduce(t, done, CelebrationEnded{Seq: done.CelebrationSeq})
	assert.False(t, ended.Celebrating)
}

func TestReduceResetClearsEverything(t *testing.T) {
	s := activeState(t, "s1", breathingTask("s1", model.TaskInProgress))
	s, _ = mustReduce(t, s, Send{Text: "x", Message: model.Message{ID: "u"}})

	next, effects := mustReduce(t, s, Reset{Mood: "tired", Greeting: model.Message{ID: "g2", Text: Greeting("tired"), Sender: model.SenderAI}})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseNew, next.Phase)
	assert.Empty(t, next.SessionID)
	assert.Equal(t, s.Epoch+1, next.Epoch)
	assert.True(t, next.Task.Empty())
	assert.Equal(t, 1, next.Transcript.Len())
	assert.Equal(t, "tired", next.Mood)
}

func TestGreetingVariesByMood(t *testing.T) {
	assert.NotEqual(t, Greeting("happy"), Greeting("sad"))
	assert.Equal(t, Greeting(""), Greeting("unknown-mood"))
	assert.Equal(t, Greeting("Anxious"), Greeting("anxious"))
}

func TestReduceTaskFetchAppliesOnce(t *testing.T) {
	s, _ := mustReduce(t, State{}, Select{SessionID: "s1"})
	assert.True(t, s.TaskFetchPending)
	tag := s.Tag()

	s, _ = mustReduce(t, s, TaskLoaded{Tag: tag, Task: breathingTask("s1", model.TaskPending)})
	assert.False(t, s.TaskFetchPending)

	_, _, err := Reduce(s, TaskLoaded{Tag: tag})
	assert.ErrorIs(t, err, ErrStaleResult)
}

func TestReduceLateTaskFetchAfterGeneratedTask(t *testing.T) {
	s, _ := mustReduce(t, State{}, Select{SessionID: "s1"})
	tag := s.Tag()
	s, _ = mustReduce(t, s, TranscriptLoaded{Tag: tag})
	s, _ = mustReduce(t, s, Send{Text: "I feel anxious", Message: userMsg("u", "")})
	s, _ = mustReduce(t, s, SendCompleted{Tag: tag, Outcome: &model.SendOutcome{
		SessionID:    "s1",
		Messages:     []model.Message{userMsg("u", "I feel anxious")},
		GenerateTask: true,
		Task:         breathingTask("s1", model.TaskPending),
	}})
	require.Equal(t, "task-s1", s.Task.TaskID())

	_, _, err := Reduce(s, TaskLoaded{Tag: tag})
	assert.ErrorIs(t, err, ErrStaleResult)
}

func TestReduceLateTaskFetchDuringCompletion(t *testing.T) {
	s, _ := mustReduce(t, State{}, Select{SessionID: "s1"})
	tag := s.Tag()
	s, _ = mustReduce(t, s, TranscriptLoaded{Tag: tag})
	s, _ = mustReduce(t, s, Send{Text: "help me relax", Message: userMsg("u", "")})
	s, _ = mustReduce(t, s, SendCompleted{Tag: tag, Outcome: &model.SendOutcome{
		SessionID:    "s1",
		Messages:     []model.Message{userMsg("u", "help me relax")},
		GenerateTask: true,
		Task:         breathingTask("s1", model.TaskInProgress),
	}})

	s, effects := mustReduce(t, s, SetTaskStatus{TaskID: "task-s1", Status: model.TaskCompleted})
	require.Len(t, effects, 1)
	require.True(t, s.Completing())

	_, _, err := Reduce(s, TaskLoaded{Tag: tag, Task: breathingTask("s1", model.TaskPending)})
	assert.ErrorIs(t, err, ErrStaleResult)

	_, _, err = Reduce(s, SetTaskStatus{TaskID: "task-s1", Status: model.TaskCompleted})
	assert.ErrorIs(t, err, ErrCompletionInFlight)
}
