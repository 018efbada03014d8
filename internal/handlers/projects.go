package handlers

import (
	"log/slog"
	"net/http"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/middleware"
	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
)

const projectNotFound = "Project not found"

type ProjectHandler struct {
	responder
	projectService services.ProjectService
	statsService   services.StatsService
}

func NewProjectHandler(projectService services.ProjectService, statsService services.StatsService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		responder:      responder{logger: logger},
		projectService: projectService,
		statsService:   statsService,
	}
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	raw := access.RawProjectFilters{
		Status:     queryPtr(c, "status"),
		ClientName: queryPtr(c, "client_name"),
		Search:     queryPtr(c, "search"),
		Page:       c.Query("page"),
	}

	page, err := h.projectService.List(c.Request.Context(), middleware.CallerFrom(c), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, page, "Projects retrieved successfully")
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var input services.CreateProjectInput
	if !h.bindJSON(c, &input) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.CallerFrom(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, project, "Project created successfully")
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := h.pathID(c, projectNotFound)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, project, "Project retrieved successfully")
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := h.pathID(c, projectNotFound)
	if !ok {
		return
	}
	var input services.UpdateProjectInput
	if !h.bindJSON(c, &input) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.CallerFrom(c), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, project, "Project updated successfully")
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := h.pathID(c, projectNotFound)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, nil, "Project deleted successfully")
}

func (h *ProjectHandler) Statistics(c *gin.Context) {
	stats, err := h.statsService.ProjectStats(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, stats, "Project statistics retrieved successfully")
}
