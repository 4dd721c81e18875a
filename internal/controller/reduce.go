package controller

import (
	"strings"

	"moodmate/internal/model"
	"moodmate/internal/transcript"
)

// Reduce is the controller's transition function. It never performs I/O: any
// request it needs is returned as an Effect. A non-nil error means the event was
// rejected and the returned state equals s.
func Reduce(s State, ev Event) (State, []Effect, error) {
	switch e := ev.(type) {
	case Reset:
		return reduceReset(s, e), nil, nil
	case Select:
		return reduceSelect(s, e)
	case Send:
		return reduceSend(s, e)
	case SetTaskStatus:
		return reduceSetTaskStatus(s, e)
	case ToggleStep:
		if err := s.Task.Check(e.TaskID); err != nil {
			return s, nil, err
		}
		next, err := s.Task.ToggleStep(e.Index)
		if err != nil {
			return s, nil, err
		}
		s.Task = next
		return s, nil, nil
	case SetTaskVisible:
		if s.Task.Empty() {
			return s, nil, ErrNoTask
		}
		s.Task = s.Task.WithVisible(e.Visible)
		return s, nil, nil

	case TranscriptLoaded:
		return reduceTranscriptLoaded(s, e)
	case TaskLoaded:
		return reduceTaskLoaded(s, e)
	case SendCompleted:
		return reduceSendCompleted(s, e)
	case CompletionFinished:
		return reduceCompletionFinished(s, e)
	case CelebrationEnded:
		if e.Seq != s.CelebrationSeq {
			return s, nil, ErrStaleResult
		}
		s.Celebrating = false
		return s, nil, nil
	}
	return s, nil, nil
}

func reduceReset(s State, e Reset) State {
	return State{
		Phase:          PhaseNew,
		Epoch:          s.Epoch + 1,
		Mood:           e.Mood,
		Transcript:     transcript.New(e.Greeting),
		CelebrationSeq: s.CelebrationSeq,
	}
}

func reduceSelect(s State, e Select) (State, []Effect, error) {
	if e.SessionID == "" {
		return s, nil, ErrEmptySessionID
	}
	next := State{
		Phase:            PhaseLoading,
		SessionID:        e.SessionID,
		Epoch:            s.Epoch + 1,
		Mood:             s.Mood,
		TaskFetchPending: true,
		CelebrationSeq:   s.CelebrationSeq,
	}
	tag := next.Tag()
	return next, []Effect{FetchTranscript{Tag: tag}, FetchTask{Tag: tag}}, nil
}

func reduceSend(s State, e Send) (State, []Effect, error) {
	if strings.TrimSpace(e.Text) == "" {
		return s, nil, ErrEmptyMessage
	}
	switch s.Phase {
	case PhaseSending:
		return s, nil, ErrSendInFlight
	case PhaseLoading:
		return s, nil, ErrSessionLoading
	}

	optimistic := e.Message
	optimistic.Text = e.Text
	optimistic.Sender = model.SenderUser
	optimistic.Pending = true

	s.Transcript = s.Transcript.Append(optimistic)
	s.Phase = PhaseSending
	return s, []Effect{SendMessage{Tag: s.Tag(), Text: e.Text}}, nil
}

func reduceSetTaskStatus(s State, e SetTaskStatus) (State, []Effect, error) {
	if err := s.Task.Check(e.TaskID); err != nil {
		return s, nil, err
	}
	if e.Status != model.TaskCompleted {
		next, _, err := s.Task.Advance(e.Status)
		if err != nil {
			return s, nil, err
		}
		s.Task = next
		return s, nil, nil
	}

	task, _ := s.Task.Task()
	if task.Status == model.TaskCompleted {
		// already done: idempotent, no request and no second celebration
		return s, nil, nil
	}
	next, err := s.Task.BeginCompletion()
	if err != nil {
		return s, nil, err
	}
	s.Task = next
	s.TaskFetchPending = false
	return s, []Effect{CompleteTask{Tag: s.Tag(), TaskID: task.ID}}, nil
}

func reduceTranscriptLoaded(s State, e TranscriptLoaded) (State, []Effect, error) {
	if !s.current(e.Tag) {
		return s, nil, ErrStaleResult
	}
	if e.Err != nil {
		s.Transcript = s.Transcript.Clear()
	} else {
		s.Transcript = s.Transcript.Replace(e.Messages)
	}
	if s.Phase == PhaseLoading {
		s.Phase = PhaseActive
	}
	return s, nil, nil
}

// reduceTaskLoaded applies the select's task fetch once. A send or a
// completion in the same session may already have replaced the binding.
func reduceTaskLoaded(s State, e TaskLoaded) (State, []Effect, error) {
	if !s.current(e.Tag) || !s.TaskFetchPending {
		return s, nil, ErrStaleResult
	}
	s.TaskFetchPending = false
	if e.Err != nil || e.Task == nil {
		s.Task = s.Task.Clear()
		return s, nil, nil
	}
	s.Task = s.Task.Set(*e.Task, true)
	return s, nil, nil
}

func reduceSendCompleted(s State, e SendCompleted) (State, []Effect, error) {
	if !s.current(e.Tag) || s.Phase != PhaseSending {
		return s, nil, ErrStaleResult
	}
	if e.Err != nil || e.Outcome == nil {
		// keep what the user typed; only the typing indicator goes away
		if s.Bound() {
			s.Phase = PhaseActive
		} else {
			s.Phase = PhaseNew
		}
		return s, nil, nil
	}

	out := e.Outcome
	if out.SessionID != "" {
		s.SessionID = out.SessionID
	}
	s.Transcript = s.Transcript.Replace(out.Messages)
	if out.GenerateTask && out.Task != nil {
		s.Task = s.Task.Set(*out.Task, true)
		s.TaskFetchPending = false
	}
	s.Phase = PhaseActive
	return s, nil, nil
}

func reduceCompletionFinished(s State, e CompletionFinished) (State, []Effect, error) {
	if !s.current(e.Tag) || s.Task.TaskID() != e.TaskID || !s.Task.Completing() {
		return s, nil, ErrStaleResult
	}
	if e.Err != nil {
		s.Task = s.Task.FinishCompletion(false, e.At)
		return s, []Effect{Alert{Message: completionFailedAlert}}, nil
	}
	s.Task = s.Task.FinishCompletion(true, e.At)
	s.Celebrating = true
	s.CelebrationSeq++
	return s, []Effect{Celebrate{Seq: s.CelebrationSeq}}, nil
}
