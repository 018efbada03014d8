package services

import (
	"context"
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
	msgOwnedProjectNotFound = "Project not found"
	msgProjectHasTasks      = "Cannot delete project with existing tasks. Please delete all tasks first."
)

type CreateProjectInput struct {
	Name        string               `json:"name" validate:"required,notblank,max=255"`
	Description *string              `json:"description"`
	ClientName  string               `json:"client_name" validate:"required,notblank,max=255"`
	Status      models.ProjectStatus `json:"status" validate:"omitempty,project_status"`
	StartDate   *string              `json:"start_date"`
	EndDate     *string              `json:"end_date"`
}

type UpdateProjectInput struct {
	Name        models.Optional[string]               `json:"name"`
	Description models.Optional[string]               `json:"description"`
	ClientName  models.Optional[string]               `json:"client_name"`
	Status      models.Optional[models.ProjectStatus] `json:"status"`
	StartDate   models.Optional[string]               `json:"start_date"`
	EndDate     models.Optional[string]               `json:"end_date"`
}

type projectFields struct {
	Name       string               `json:"name" validate:"required,notblank,max=255"`
	ClientName string               `json:"client_name" validate:"required,notblank,max=255"`
	Status     models.ProjectStatus `json:"status" validate:"required,project_status"`
}

type ProjectService interface {
	Create(ctx context.Context, caller access.Caller, input CreateProjectInput) (*models.Project, error)
	Get(ctx context.Context, caller access.Caller, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, caller access.Caller, id uuid.UUID, input UpdateProjectInput) (*models.Project, error)
	Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error
	List(ctx context.Context, caller access.Caller, raw access.RawProjectFilters) (repositories.Page[models.Project], error)
}

type ProjectServiceImpl struct {
	db        *gorm.DB
	projects  repositories.ProjectRepository
	validator *Validator
	clock     clock.Clock
	logger    *slog.Logger
}

func NewProjectService(db *gorm.DB, clk clock.Clock, logger *slog.Logger) *ProjectServiceImpl {
	return &ProjectServiceImpl{
		db:        db,
		projects:  repositories.NewProjectRepository(db),
		validator: NewValidator(),
		clock:     clk,
		logger:    logger,
	}
}

func (s *ProjectServiceImpl) Create(ctx context.Context, caller access.Caller, input CreateProjectInput) (*models.Project, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}

	startDate, startErr := parseOptionalDate("start_date", input.StartDate)
	endDate, endErr := parseOptionalDate("end_date", input.EndDate)
	if err := mergeValidation(s.validator.Struct(input), startErr, endErr, checkDateRange(startDate, endDate)); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	project := models.Project{
		UserID:      caller.UserID,
		Name:        strings.TrimSpace(input.Name),
		Description: normalizeText(input.Description),
		ClientName:  strings.TrimSpace(input.ClientName),
		Status:      input.Status,
		StartDate:   startDate,
		EndDate:     endDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}

	if err := s.projects.Create(ctx, &project); err != nil {
		return nil, Unexpected("Failed to create project", err)
	}

	s.logger.Info("project created",
		slog.String("project_id", project.ID.String()),
		slog.String("user_id", caller.UserID.String()))

	var noTasks int64
	project.TasksCount = &noTasks
	return &project, nil
}

// Get returns the project with its tasks, newest first.
func (s *ProjectServiceImpl) Get(ctx context.Context, caller access.Caller, id uuid.UUID) (*models.Project, error) {
	if _, err := s.authorizedProject(ctx, s.projects, caller, id, access.ActionView); err != nil {
		return nil, err
	}
	project, err := s.projects.FindWithTasks(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgOwnedProjectNotFound)
	}
	return project, nil
}

// Update validates the end date against the start date the project will
// have after the patch.
func (s *ProjectServiceImpl) Update(ctx context.Context, caller access.Caller, id uuid.UUID, input UpdateProjectInput) (*models.Project, error) {
	var updated *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)

		project, err := s.authorizedProject(ctx, projects, caller, id, access.ActionUpdate)
		if err != nil {
			return err
		}

		fields := projectFields{Name: project.Name, ClientName: project.ClientName, Status: project.Status}
		if input.Name.Set {
			fields.Name = input.Name.Value
		}
		if input.ClientName.Set {
			fields.ClientName = input.ClientName.Value
		}
		if input.Status.Set {
			fields.Status = input.Status.Value
		}

		startDate, endDate := project.StartDate, project.EndDate
		var startErr, endErr error
		if input.StartDate.Set {
			startDate, startErr = parseOptionalDate("start_date", optionalText(input.StartDate))
		}
		if input.EndDate.Set {
			endDate, endErr = parseOptionalDate("end_date", optionalText(input.EndDate))
		}
		var rangeErr error
		if startErr == nil && endErr == nil {
			rangeErr = checkDateRange(startDate, endDate)
		}
		if err := mergeValidation(s.validator.Struct(fields), startErr, endErr, rangeErr); err != nil {
			return err
		}

		project.Name = strings.TrimSpace(fields.Name)
		project.ClientName = strings.TrimSpace(fields.ClientName)
		project.Status = fields.Status
		project.StartDate = startDate
		project.EndDate = endDate
		if input.Description.Set {
			project.Description = normalizeText(optionalText(input.Description))
		}
		project.UpdatedAt = s.clock.Now()
		project.Tasks = nil

		if err := projects.Save(ctx, project); err != nil {
			return Unexpected("Failed to update project", err)
		}
		updated = project
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "Failed to update project")
	}

	s.logger.Info("project updated", slog.String("project_id", id.String()), slog.String("user_id", caller.UserID.String()))
	return updated, nil
}

// Delete refuses to remove a project that still has tasks.
func (s *ProjectServiceImpl) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)

		if _, err := s.authorizedProject(ctx, projects, caller, id, access.ActionDelete); err != nil {
			return err
		}

		count, err := projects.CountTasks(ctx, id)
		if err != nil {
			return Unexpected("Failed to delete project", err)
		}
		if count > 0 {
			return Conflict(msgProjectHasTasks)
		}

		if err := projects.Delete(ctx, id); err != nil {
			return lookupError(err, msgOwnedProjectNotFound)
		}
		return nil
	})
	if err != nil {
		return asServiceError(err, "Failed to delete project")
	}

	s.logger.Info("project deleted", slog.String("project_id", id.String()), slog.String("user_id", caller.UserID.String()))
	return nil
}

func (s *ProjectServiceImpl) List(ctx context.Context, caller access.Caller, raw access.RawProjectFilters) (repositories.Page[models.Project], error) {
	if !caller.Authenticated() {
		return repositories.Page[models.Project]{}, ErrUnauthenticated
	}
	page, err := s.projects.List(ctx, access.BuildProjectFilter(caller, raw))
	if err != nil {
		return repositories.Page[models.Project]{}, Unexpected("Failed to retrieve projects", err)
	}
	return page, nil
}

func (s *ProjectServiceImpl) authorizedProject(ctx context.Context, projects repositories.ProjectRepository, caller access.Caller, id uuid.UUID, action access.Action) (*models.Project, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	project, err := projects.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, msgOwnedProjectNotFound)
	}
	if err := access.AuthorizeProject(caller, access.ProjectRefOf(project), action); err != nil {
		s.logger.Debug("project access denied",
			slog.String("project_id", id.String()),
			slog.String("user_id", caller.UserID.String()),
			slog.String("action", string(action)))
		return nil, NotFound(msgOwnedProjectNotFound)
	}
	return project, nil
}

func checkDateRange(start, end *models.Date) error {
	if start != nil && end != nil && end.Before(*start) {
		return FieldError("end_date", "The end date field must be a date after or equal to start date.")
	}
	return nil
}
