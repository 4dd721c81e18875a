package controller

import (
	"moodmate/internal/taskbinding"
	"moodmate/internal/transcript"
)

// Phase is the conversation half of the controller state machine.
type Phase int

const (
	// PhaseNew is the unsaved draft: no session id, a greeting, no task.
	PhaseNew Phase = iota
	// PhaseLoading waits for the selected session's transcript.
	PhaseLoading
	// PhaseActive shows a bound session.
	PhaseActive
	// PhaseSending has an optimistic message awaiting the reply.
	PhaseSending
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseSending:
		return "sending"
	default:
		return "unknown"
	}
}

// Tag identifies the view an async request was issued from. Epoch advances on
// every identity change, so a result is current only when both fields match.
type Tag struct {
	SessionID string
	Epoch     uint64
}

// State is an immutable snapshot; Reduce returns a new one per event.
type State struct {
	Phase Phase
	// SessionID is empty while the conversation is a draft.
	SessionID  string
	Epoch      uint64
	Mood       string
	Transcript transcript.Store
	Task       taskbinding.Binding
	// TaskFetchPending is set by a select and cleared once the task fetch
	// lands or a newer task source (a generated task, a completion) wins.
	TaskFetchPending bool

	Celebrating    bool
	CelebrationSeq uint64
}

func (s State) Tag() Tag { return Tag{SessionID: s.SessionID, Epoch: s.Epoch} }

// Bound reports whether the conversation has a server-assigned id.
func (s State) Bound() bool { return s.SessionID != "" }

// Typing is true while the companion's reply is outstanding.
func (s State) Typing() bool { return s.Phase == PhaseSending }

func (s State) Loading() bool { return s.Phase == PhaseLoading }

// CanSend reports whether the send affordance should be enabled.
func (s State) CanSend() bool { return s.Phase == PhaseNew || s.Phase == PhaseActive }

// Completing is the Completing-Task sub-state of the task binding.
func (s State) Completing() bool { return s.Task.Completing() }

func (s State) current(t Tag) bool {
	return t.Epoch == s.Epoch && t.SessionID == s.SessionID
}
