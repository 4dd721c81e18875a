package controller

import (
	"errors"

	"moodmate/internal/taskbinding"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrSendInFlight   = errors.New("a message is already being sent")
	ErrSessionLoading = errors.New("session is still loading")
	ErrEmptySessionID = errors.New("session id is empty")
	ErrClosed         = errors.New("controller is closed")

	// ErrStaleResult marks an async result whose view is no longer current.
	ErrStaleResult = errors.New("stale result dropped")
)

var (
	ErrNoTask             = taskbinding.ErrNoTask
	ErrTaskMismatch       = taskbinding.ErrTaskMismatch
	ErrStatusRegression   = taskbinding.ErrStatusRegression
	ErrUnknownStatus      = taskbinding.ErrUnknownStatus
	ErrStepOutOfRange     = taskbinding.ErrStepOutOfRange
	ErrTaskCompleted      = taskbinding.ErrTaskCompleted
	ErrCompletionInFlight = taskbinding.ErrCompletionInFlight
)

const completionFailedAlert = "We couldn't mark this task as complete. Please try again."
