package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moodmate/internal/model"
	"moodmate/internal/service"
)

type TaskHandler struct {
	taskService *service.TaskService
}

func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// ForSession serves GET /task/:id where id is the session id. A session
// without a task yields success with null data.
func (h *TaskHandler) ForSession(c *gin.Context) {
	task, err := h.taskService.ForSession(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Envelope[model.Task]{Success: true, Data: task})
}

// Complete serves PATCH /task/:id/complete?taskId=&sessionId=.
func (h *TaskHandler) Complete(c *gin.Context) {
	var q model.CompleteTaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, model.Envelope[any]{Message: err.Error()})
		return
	}
	taskID := c.Param("id")
	if q.TaskID != "" && q.TaskID != taskID {
		c.JSON(http.StatusBadRequest, model.Envelope[any]{Message: "taskId does not match path"})
		return
	}

	task, err := h.taskService.Complete(taskID, q.SessionID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, *task)
}
