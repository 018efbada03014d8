package handlers

import (
	"log/slog"
	"net/http"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/middleware"
	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
)

const taskNotFound = "Task not found"

type TaskHandler struct {
	responder
	taskService  services.TaskService
	statsService services.StatsService
}

func NewTaskHandler(taskService services.TaskService, statsService services.StatsService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		responder:    responder{logger: logger},
		taskService:  taskService,
		statsService: statsService,
	}
}

// GetTasks lists the caller's tasks. project_id=standalone selects tasks
// without a project.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	raw := access.RawTaskFilters{
		Status:     queryPtr(c, "status"),
		Priority:   queryPtr(c, "priority"),
		AssignedTo: queryPtr(c, "assigned_to"),
		ProjectID:  queryPtr(c, "project_id"),
		Search:     queryPtr(c, "search"),
		Page:       c.Query("page"),
	}

	page, err := h.taskService.List(c.Request.Context(), middleware.CallerFrom(c), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, page, "Tasks retrieved successfully")
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input services.CreateTaskInput
	if !h.bindJSON(c, &input) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.CallerFrom(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	message := "Standalone task created successfully"
	if task.HasProject() {
		message = "Project task created successfully"
	}
	h.ok(c, http.StatusCreated, task, message)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := h.pathID(c, taskNotFound)
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, task, "Task retrieved successfully")
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := h.pathID(c, taskNotFound)
	if !ok {
		return
	}
	var input services.UpdateTaskInput
	if !h.bindJSON(c, &input) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), middleware.CallerFrom(c), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, task, "Task updated successfully")
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := h.pathID(c, taskNotFound)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, nil, "Task deleted successfully")
}

func (h *TaskHandler) Statistics(c *gin.Context) {
	stats, err := h.statsService.TaskStats(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, stats, "Task statistics retrieved successfully")
}
