package model

// Envelope wraps every backend reply.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Message string `json:"message,omitempty"`
}

type TranscriptData struct {
	Messages []ChatMessage `json:"messages"`
}

// SendData is the `data` of POST /chat/send.
type SendData struct {
	SessionID    string        `json:"sessionId"`
	Response     []ChatMessage `json:"response"`
	GenerateTask bool          `json:"generateTask"`
	Task         *Task         `json:"task,omitempty"`
}

// SendOutcome is SendData normalized for the controller.
type SendOutcome struct {
	SessionID    string
	Messages     []Message
	GenerateTask bool
	Task         *Task
}
