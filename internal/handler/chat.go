package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"moodmate/internal/model"
	"moodmate/internal/service"
	"moodmate/internal/storage"
	"moodmate/pkg/logger"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// History serves GET /chat/history.
func (h *ChatHandler) History(c *gin.Context) {
	items, err := h.chatService.History(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, items)
}

// Transcript serves GET /chat/session/:id.
func (h *ChatHandler) Transcript(c *gin.Context) {
	messages, err := h.chatService.Transcript(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, model.TranscriptData{Messages: messages})
}

// Send serves POST /chat/send.
func (h *ChatHandler) Send(c *gin.Context) {
	var req model.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.Envelope[any]{Message: err.Error()})
		return
	}

	data, err := h.chatService.Send(c.Request.Context(), req.Message, req.SessionID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, data)
}

func ok[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, model.Envelope[T]{Success: true, Data: &data})
}

// fail maps service and storage errors onto HTTP statuses with a
// success:false envelope.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrSessionNotFound), errors.Is(err, storage.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrTaskSessionMismatch):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, model.Envelope[any]{Message: err.Error()})
}
