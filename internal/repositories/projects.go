package repositories

import (
	"context"
	"strings"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const projectTasksCountColumn = "(SELECT COUNT(*) FROM tasks WHERE tasks.project_id = projects.id) AS tasks_count"

type ProjectCounts struct {
	Total     int64 `json:"total_projects"`
	Active    int64 `json:"active_projects"`
	Completed int64 `json:"completed_projects"`
	OnHold    int64 `json:"on_hold_projects"`
	Cancelled int64 `json:"cancelled_projects"`
	Overdue   int64 `json:"overdue_projects"`
}

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	FindWithTasks(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountTasks(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, filter access.ProjectFilter) (Page[models.Project], error)
	Counts(ctx context.Context, ownerID uuid.UUID, today models.Date) (ProjectCounts, error)
	WithTx(tx *gorm.DB) ProjectRepository
}

type GormProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: tx}
}

func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Select("projects.*, "+projectTasksCountColumn).
		First(&project, "projects.id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// FindWithTasks loads the project and its tasks, newest first.
func (r *GormProjectRepository) FindWithTasks(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Select("projects.*, "+projectTasksCountColumn).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return newestFirst("tasks")(db)
		}).
		Preload("Tasks.AssignedUser").
		First(&project, "projects.id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

func (r *GormProjectRepository) Save(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

func (r *GormProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormProjectRepository) CountTasks(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).Where("project_id = ?", id).Count(&count).Error
	return count, err
}

func (r *GormProjectRepository) List(ctx context.Context, filter access.ProjectFilter) (Page[models.Project], error) {
	if filter.NoMatch {
		return newPage[models.Project](nil, 0, filter.Page), nil
	}

	query := r.db.WithContext(ctx).Model(&models.Project{}).Scopes(projectFilterScope(filter))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return Page[models.Project]{}, err
	}

	var projects []models.Project
	err := r.db.WithContext(ctx).
		Select("projects.*, "+projectTasksCountColumn).
		Scopes(projectFilterScope(filter), newestFirst("projects"), paginate(filter.Page)).
		Find(&projects).Error
	if err != nil {
		return Page[models.Project]{}, err
	}

	return newPage(projects, total, filter.Page), nil
}

// Counts computes each statistic over the owner's projects. A project is
// overdue when its end date is before today and it is not completed.
func (r *GormProjectRepository) Counts(ctx context.Context, ownerID uuid.UUID, today models.Date) (ProjectCounts, error) {
	var counts ProjectCounts
	owned := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Project{}).Where("projects.user_id = ?", ownerID)
	}

	targets := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&counts.Total, owned()},
		{&counts.Active, owned().Where("projects.status = ?", models.ProjectStatusActive)},
		{&counts.Completed, owned().Where("projects.status = ?", models.ProjectStatusCompleted)},
		{&counts.OnHold, owned().Where("projects.status = ?", models.ProjectStatusOnHold)},
		{&counts.Cancelled, owned().Where("projects.status = ?", models.ProjectStatusCancelled)},
		{&counts.Overdue, owned().
			Where("projects.end_date IS NOT NULL AND projects.end_date < ?", today).
			Where("projects.status <> ?", models.ProjectStatusCompleted)},
	}

	for _, target := range targets {
		if err := target.query.Count(target.dest).Error; err != nil {
			return ProjectCounts{}, err
		}
	}
	return counts, nil
}

func projectFilterScope(filter access.ProjectFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("projects.user_id = ?", filter.OwnerID)

		if filter.Status != nil {
			db = db.Where("projects.status = ?", *filter.Status)
		}
		if filter.ClientName != nil && *filter.ClientName != "" {
			db = db.Where("LOWER(projects.client_name) LIKE ?", likePattern(strings.ToLower(*filter.ClientName)))
		}
		if filter.Search != nil && *filter.Search != "" {
			pattern := likePattern(strings.ToLower(*filter.Search))
			db = db.Where(
				"(LOWER(projects.name) LIKE ? OR LOWER(projects.description) LIKE ? OR LOWER(projects.client_name) LIKE ?)",
				pattern, pattern, pattern,
			)
		}
		return db
	}
}
