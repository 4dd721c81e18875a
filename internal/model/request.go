package model

type SendRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId,omitempty"`
}

type CompleteTaskQuery struct {
	TaskID    string `form:"taskId"`
	SessionID string `form:"sessionId"`
}
