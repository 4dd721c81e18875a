// Package taskbinding holds the single wellness task of the active session.
//
// Step toggles and non-final status changes stay local; only completion is
// persisted by the backend, and the controller drives that request.
package taskbinding

import (
	"errors"
	"time"

	"moodmate/internal/model"
)

var (
	ErrNoTask             = errors.New("no task bound to the session")
	ErrTaskMismatch       = errors.New("task id does not match the bound task")
	ErrStatusRegression   = errors.New("task status can only move forward")
	ErrUnknownStatus      = errors.New("unknown task status")
	ErrStepOutOfRange     = errors.New("task step index out of range")
	ErrTaskCompleted      = errors.New("task already completed")
	ErrCompletionInFlight = errors.New("task completion already in flight")
	ErrRemoteOnly         = errors.New("completion must be confirmed by the backend")
)

// Binding is a value; methods return an updated copy.
type Binding struct {
	task       *model.Task
	visible    bool
	completing bool
}

func (b Binding) Empty() bool      { return b.task == nil }
func (b Binding) Visible() bool    { return b.task != nil && b.visible }
func (b Binding) Completing() bool { return b.completing }

// Task returns a copy of the bound task.
func (b Binding) Task() (model.Task, bool) {
	if b.task == nil {
		return model.Task{}, false
	}
	return b.task.Clone(), true
}

func (b Binding) TaskID() string {
	if b.task == nil {
		return ""
	}
	return b.task.ID
}

// Set binds t. Rebinding the same task keeps its in-flight completion flag
// and never moves its status backwards.
func (b Binding) Set(t model.Task, visible bool) Binding {
	cp := t.Clone()
	if !cp.Status.Valid() {
		cp.Status = model.TaskPending
	}
	if b.task != nil && b.task.ID == cp.ID {
		if cp.Status.Rank() < b.task.Status.Rank() {
			cp.Status = b.task.Status
			cp.CompletedAt = b.task.CompletedAt
		}
		return Binding{task: &cp, visible: visible, completing: b.completing}
	}
	return Binding{task: &cp, visible: visible}
}

func (b Binding) Clear() Binding { return Binding{} }

func (b Binding) WithVisible(v bool) Binding {
	if b.task == nil {
		return b
	}
	b.visible = v
	return b
}

// Check verifies a task is bound and matches id.
func (b Binding) Check(id string) error {
	if b.task == nil {
		return ErrNoTask
	}
	if id != "" && id != b.task.ID {
		return ErrTaskMismatch
	}
	return nil
}

// ToggleStep flips the completed flag of step i.
func (b Binding) ToggleStep(i int) (Binding, error) {
	if b.task == nil {
		return b, ErrNoTask
	}
	if b.task.Status == model.TaskCompleted {
		return b, ErrTaskCompleted
	}
	if i < 0 || i >= len(b.task.Steps) {
		return b, ErrStepOutOfRange
	}
	cp := b.task.Clone()
	cp.Steps[i].Completed = !cp.Steps[i].Completed
	b.task = &cp
	return b, nil
}

// Advance applies a local, non-final status change. Moving to the current
// status is a no-op; completion must go through BeginCompletion.
func (b Binding) Advance(status model.TaskStatus) (Binding, bool, error) {
	if b.task == nil {
		return b, false, ErrNoTask
	}
	if !status.Valid() {
		return b, false, ErrUnknownStatus
	}
	if status == model.TaskCompleted {
		return b, false, ErrRemoteOnly
	}
	switch cur := b.task.Status; {
	case status.Rank() < cur.Rank():
		return b, false, ErrStatusRegression
	case status == cur:
		return b, false, nil
	}
	cp := b.task.Clone()
	cp.Status = status
	b.task = &cp
	return b, true, nil
}

// BeginCompletion raises the busy flag. It fails while a completion is
// already outstanding or once the task is completed.
func (b Binding) BeginCompletion() (Binding, error) {
	if b.task == nil {
		return b, ErrNoTask
	}
	if b.completing {
		return b, ErrCompletionInFlight
	}
	if b.task.Status == model.TaskCompleted {
		return b, ErrTaskCompleted
	}
	b.completing = true
	return b, nil
}

// FinishCompletion clears the busy flag and, when ok, marks the task completed.
func (b Binding) FinishCompletion(ok bool, at time.Time) Binding {
	if b.task == nil {
		return b
	}
	b.completing = false
	if !ok {
		return b
	}
	cp := b.task.Clone()
	cp.Status = model.TaskCompleted
	cp.CompletedAt = &at
	b.task = &cp
	return b
}

// Progress reports completed and total steps.
func (b Binding) Progress() (done, total int) {
	if b.task == nil {
		return 0, 0
	}
	for _, s := range b.task.Steps {
		if s.Completed {
			done++
		}
	}
	return done, len(b.task.Steps)
}
