package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	msgTaskNotFound    = "Task not found"
	msgProjectNotFound = "Project not found or access denied"
)

type CreateTaskInput struct {
	ProjectID   *string             `json:"project_id"`
	Title       string              `json:"title" validate:"required,notblank,max=255"`
	Description *string             `json:"description"`
	Status      models.TaskStatus   `json:"status" validate:"omitempty,task_status"`
	Priority    models.TaskPriority `json:"priority" validate:"omitempty,task_priority"`
	AssignedTo  *string             `json:"assigned_to"`
	DueDate     *string             `json:"due_date"`
}

// UpdateTaskInput is a partial update: absent fields keep their value.
type UpdateTaskInput struct {
	ProjectID   models.Optional[string]              `json:"project_id"`
	Title       models.Optional[string]              `json:"title"`
	Description models.Optional[string]              `json:"description"`
	Status      models.Optional[models.TaskStatus]   `json:"status"`
	Priority    models.Optional[models.TaskPriority] `json:"priority"`
	AssignedTo  models.Optional[string]              `json:"assigned_to"`
	DueDate     models.Optional[string]              `json:"due_date"`
}

// taskFields holds the validated scalar fields of a task after a patch has
// been applied.
type taskFields struct {
	Title    string              `json:"title" validate:"required,notblank,max=255"`
	Status   models.TaskStatus   `json:"status" validate:"required,task_status"`
	Priority models.TaskPriority `json:"priority" validate:"required,task_priority"`
}

type TaskService interface {
	Create(ctx context.Context, caller access.Caller, input CreateTaskInput) (*models.Task, error)
	Get(ctx context.Context, caller access.Caller, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, caller access.Caller, id uuid.UUID, input UpdateTaskInput) (*models.Task, error)
	Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error
	List(ctx context.Context, caller access.Caller, raw access.RawTaskFilters) (repositories.Page[models.Task], error)
}

type TaskServiceImpl struct {
	db        *gorm.DB
	tasks     repositories.TaskRepository
	projects  repositories.ProjectRepository
	users     repositories.UserRepository
	validator *Validator
	clock     clock.Clock
	logger    *slog.Logger
}

func NewTaskService(db *gorm.DB, clk clock.Clock, logger *slog.Logger) *TaskServiceImpl {
	return &TaskServiceImpl{
		db:        db,
		tasks:     repositories.NewTaskRepository(db),
		projects:  repositories.NewProjectRepository(db),
		users:     repositories.NewUserRepository(db),
		validator: NewValidator(),
		clock:     clk,
		logger:    logger,
	}
}

func (s *TaskServiceImpl) Create(ctx context.Context, caller access.Caller, input CreateTaskInput) (*models.Task, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	now := s.clock.Now()
	projectID, projectErr := parseOptionalID("project_id", input.ProjectID)
	assignedTo, assigneeErr := parseOptionalID("assigned_to", input.AssignedTo)
	dueDate, dueErr := parseOptionalDate("due_date", input.DueDate)
	if dueErr == nil && dueDate != nil && dueDate.Before(models.Today(now)) {
		dueErr = FieldError("due_date", "The due date field must be a date after or equal to today.")
	}
	if err := mergeValidation(s.validator.Struct(input), projectErr, assigneeErr, dueErr); err != nil {
		return nil, err
	}

	if err := s.checkAssignee(ctx, s.users, assignedTo); err != nil {
		return nil, err
	}

	task := models.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: normalizeText(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		AssignedTo:  assignedTo,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.Status == models.TaskStatusCompleted {
		completedAt := now
		task.CompletedAt = &completedAt
	}

	if projectID != nil {
		project, err := s.projects.FindByID(ctx, *projectID)
		if err != nil {
			return nil, lookupError(err, msgProjectNotFound)
		}
		if err := access.AuthorizeProject(caller, access.ProjectRefOf(project), access.ActionUpdate); err != nil {
			return nil, NotFound(msgProjectNotFound)
		}
		task.ProjectID = projectID
	} else {
		owner := caller.UserID
		task.UserID = &owner
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, Unexpected("Failed to create task", err)
	}

	s.logger.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", caller.UserID.String()),
		slog.Bool("standalone", task.IsStandalone()))

	created, err := s.tasks.FindByID(ctx, task.ID)
	if err != nil {
		return nil, Unexpected("Failed to load task", err)
	}
	return created, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, caller access.Caller, id uuid.UUID) (*models.Task, error) {
	return s.authorizedTask(ctx, s.tasks, caller, id, access.ActionView)
}

// Update applies the patch atomically. A rejected patch leaves the task
// untouched. Every transition into completed stamps completed_at; leaving the
// completed state never clears it.
func (s *TaskServiceImpl) Update(ctx context.Context, caller access.Caller, id uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	var updated *models.Task

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		projects := s.projects.WithTx(tx)
		users := s.users.WithTx(tx)

		task, err := s.authorizedTask(ctx, tasks, caller, id, access.ActionUpdate)
		if err != nil {
			return err
		}
		before := *task

		fields := taskFields{Title: task.Title, Status: task.Status, Priority: task.Priority}
		if input.Title.Set {
			fields.Title = input.Title.Value
		}
		if input.Status.Set {
			fields.Status = input.Status.Value
		}
		if input.Priority.Set {
			fields.Priority = input.Priority.Value
		}

		var projectErr, assigneeErr, dueErr error
		var projectID, assignedTo *uuid.UUID
		var dueDate *models.Date
		if input.ProjectID.Set {
			projectID, projectErr = parseOptionalID("project_id", optionalText(input.ProjectID))
		}
		if input.AssignedTo.Set {
			assignedTo, assigneeErr = parseOptionalID("assigned_to", optionalText(input.AssignedTo))
		}
		if input.DueDate.Set {
			dueDate, dueErr = parseOptionalDate("due_date", optionalText(input.DueDate))
		}
		if err := mergeValidation(s.validator.Struct(fields), projectErr, assigneeErr, dueErr); err != nil {
			return err
		}

		if input.AssignedTo.Set {
			if err := s.checkAssignee(ctx, users, assignedTo); err != nil {
				return err
			}
			task.AssignedTo = assignedTo
		}

		if input.ProjectID.Set {
			if err := s.moveTask(ctx, projects, caller, task, projectID); err != nil {
				return err
			}
		}

		if fields.Status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted {
			completedAt := s.clock.Now()
			task.CompletedAt = &completedAt
		}

		task.Title = strings.TrimSpace(fields.Title)
		task.Status = fields.Status
		task.Priority = fields.Priority
		if input.Description.Set {
			task.Description = normalizeText(optionalText(input.Description))
		}
		if input.DueDate.Set {
			task.DueDate = dueDate
		}

		if sameTaskState(&before, task) {
			updated = task
			return nil
		}

		task.UpdatedAt = s.clock.Now()
		task.Project = nil
		task.AssignedUser = nil
		if err := tasks.Save(ctx, task); err != nil {
			return Unexpected("Failed to update task", err)
		}

		updated, err = tasks.FindByID(ctx, task.ID)
		if err != nil {
			return Unexpected("Failed to load task", err)
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "Failed to update task")
	}

	s.logger.Info("task updated",
		slog.String("task_id", id.String()),
		slog.String("user_id", caller.UserID.String()),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

func (s *TaskServiceImpl) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	if _, err := s.authorizedTask(ctx, s.tasks, caller, id, access.ActionDelete); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return lookupError(err, msgTaskNotFound)
	}
	s.logger.Info("task deleted", slog.String("task_id", id.String()), slog.String("user_id", caller.UserID.String()))
	return nil
}

func (s *TaskServiceImpl) List(ctx context.Context, caller access.Caller, raw access.RawTaskFilters) (repositories.Page[models.Task], error) {
	if !caller.Authenticated() {
		return repositories.Page[models.Task]{}, ErrUnauthenticated
	}
	page, err := s.tasks.List(ctx, access.BuildTaskFilter(caller, raw))
	if err != nil {
		return repositories.Page[models.Task]{}, Unexpected("Failed to retrieve tasks", err)
	}
	return page, nil
}

// moveTask re-homes the task. A task in a project has no direct owner; a
// standalone task is owned by the caller moving it.
func (s *TaskServiceImpl) moveTask(ctx context.Context, projects repositories.ProjectRepository, caller access.Caller, task *models.Task, projectID *uuid.UUID) error {
	if projectID == nil {
		owner := caller.UserID
		task.ProjectID = nil
		task.UserID = &owner
		return nil
	}
	if task.ProjectID != nil && *task.ProjectID == *projectID {
		return nil
	}

	project, err := projects.FindByID(ctx, *projectID)
	if err != nil {
		return lookupError(err, msgProjectNotFound)
	}
	if err := access.AuthorizeProject(caller, access.ProjectRefOf(project), access.ActionUpdate); err != nil {
		return NotFound(msgProjectNotFound)
	}
	task.ProjectID = projectID
	task.UserID = nil
	return nil
}

func (s *TaskServiceImpl) authorizedTask(ctx context.Context, tasks repositories.TaskRepository, caller access.Caller, id uuid.UUID, action access.Action) (*models.Task, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	task, err := tasks.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgTaskNotFound)
	}
	if err := access.AuthorizeTask(caller, access.TaskRefOf(task), action); err != nil {
		s.logger.Debug("task access denied",
			slog.String("task_id", id.String()),
			slog.String("user_id", caller.UserID.String()),
			slog.String("action", string(action)))
		return nil, NotFound(msgTaskNotFound)
	}
	return task, nil
}

func (s *TaskServiceImpl) checkAssignee(ctx context.Context, users repositories.UserRepository, assignedTo *uuid.UUID) error {
	if assignedTo == nil {
		return nil
	}
	if _, err := users.FindByID(ctx, *assignedTo); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return FieldError("assigned_to", "The selected assigned to is invalid.")
		}
		return Unexpected("Failed to look up assignee", err)
	}
	return nil
}

func lookupError(err error, notFoundMessage string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound(notFoundMessage)
	}
	return Unexpected(notFoundMessage, err)
}

func sameTaskState(a, b *models.Task) bool {
	return a.Title == b.Title &&
		equalPtr(a.Description, b.Description) &&
		a.Status == b.Status &&
		a.Priority == b.Priority &&
		equalPtr(a.ProjectID, b.ProjectID) &&
		equalPtr(a.UserID, b.UserID) &&
		equalPtr(a.AssignedTo, b.AssignedTo) &&
		equalDate(a.DueDate, b.DueDate) &&
		equalTime(a.CompletedAt, b.CompletedAt)
}
