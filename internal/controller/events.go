package controller

import (
	"time"

	"moodmate/internal/model"
)

// Event is an input to Reduce: a user command or an async result.
type Event interface {
	eventName() string
}

type Reset struct {
	Mood     string
	Greeting model.Message
}

type Select struct {
	SessionID string
}

type Send struct {
	Text string
	// Message is the optimistic entry appended before the request goes out.
	Message model.Message
}

type SetTaskStatus struct {
	TaskID string
	Status model.TaskStatus
}

type ToggleStep struct {
	TaskID string
	Index  int
}

type SetTaskVisible struct {
	Visible bool
}

type TranscriptLoaded struct {
	Tag      Tag
	Messages []model.Message
	Err      error
}

type TaskLoaded struct {
	Tag  Tag
	Task *model.Task
	Err  error
}

type SendCompleted struct {
	Tag     Tag
	Outcome *model.SendOutcome
	Err     error
}

type CompletionFinished struct {
	Tag    Tag
	TaskID string
	At     time.Time
	Err    error
}

type CelebrationEnded struct {
	Seq uint64
}

func (Reset) eventName() string              { return "reset" }
func (Select) eventName() string             { return "select" }
func (Send) eventName() string               { return "send" }
func (SetTaskStatus) eventName() string      { return "set_task_status" }
func (ToggleStep) eventName() string         { return "toggle_step" }
func (SetTaskVisible) eventName() string     { return "set_task_visible" }
func (TranscriptLoaded) eventName() string   { return "transcript_loaded" }
func (TaskLoaded) eventName() string         { return "task_loaded" }
func (SendCompleted) eventName() string      { return "send_completed" }
func (CompletionFinished) eventName() string { return "completion_finished" }
func (CelebrationEnded) eventName() string   { return "celebration_ended" }

// Effect is a side effect requested by Reduce and executed by the Controller.
type Effect interface {
	effectName() string
}

type FetchTranscript struct{ Tag Tag }

type FetchTask struct{ Tag Tag }

type SendMessage struct {
	Tag  Tag
	Text string
}

type CompleteTask struct {
	Tag    Tag
	TaskID string
}

type Celebrate struct{ Seq uint64 }

type Alert struct{ Message string }

func (FetchTranscript) effectName() string { return "fetch_transcript" }
func (FetchTask) effectName() string       { return "fetch_task" }
func (SendMessage) effectName() string     { return "send_message" }
func (CompleteTask) effectName() string    { return "complete_task" }
func (Celebrate) effectName() string       { return "celebrate" }
func (Alert) effectName() string           { return "alert" }
