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

// ownedTaskPredicate matches tasks reachable through a project the user owns,
// or standalone tasks the user owns directly.
const ownedTaskPredicate = "((tasks.project_id IS NOT NULL AND EXISTS (" +
	"SELECT 1 FROM projects WHERE projects.id = tasks.project_id AND projects.user_id = ?)) " +
	"OR (tasks.project_id IS NULL AND tasks.user_id = ?))"

type TaskCounts struct {
	Total      int64 `json:"total_tasks"`
	Pending    int64 `json:"pending_tasks"`
	InProgress int64 `json:"in_progress_tasks"`
	Completed  int64 `json:"completed_tasks"`
	Overdue    int64 `json:"overdue_tasks"`
	InProject  int64 `json:"project_tasks"`
	Standalone int64 `json:"standalone_tasks"`
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Save(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter access.TaskFilter) (Page[models.Task], error)
	Counts(ctx context.Context, ownerID uuid.UUID, today models.Date) (TaskCounts, error)
	WithTx(tx *gorm.DB) TaskRepository
}

type GormTaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) WithTx(tx *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: tx}
}

// OwnedBy restricts a task query to the ownership predicate.
func OwnedBy(ownerID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(ownedTaskPredicate, ownerID, ownerID)
	}
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Project").Preload("AssignedUser")
}

func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// FindByID loads the task with its project, so ownership through the
// project can be resolved without another query.
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Scopes(withTaskRelations).
		First(&task, "tasks.id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *GormTaskRepository) Save(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

func (r *GormTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormTaskRepository) List(ctx context.Context, filter access.TaskFilter) (Page[models.Task], error) {
	if filter.NoMatch {
		return newPage[models.Task](nil, 0, filter.Page), nil
	}

	var total int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Scopes(taskFilterScope(filter)).
		Count(&total).Error
	if err != nil {
		return Page[models.Task]{}, err
	}

	var tasks []models.Task
	err = r.db.WithContext(ctx).
		Scopes(taskFilterScope(filter), withTaskRelations, newestFirst("tasks"), paginate(filter.Page)).
		Find(&tasks).Error
	if err != nil {
		return Page[models.Task]{}, err
	}

	return newPage(tasks, total, filter.Page), nil
}

// Counts computes each statistic independently over the same owned set.
// Tasks due today are not overdue.
func (r *GormTaskRepository) Counts(ctx context.Context, ownerID uuid.UUID, today models.Date) (TaskCounts, error) {
	var counts TaskCounts
	owned := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Task{}).Scopes(OwnedBy(ownerID))
	}

	targets := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&counts.Total, owned()},
		{&counts.Pending, owned().Where("tasks.status = ?", models.TaskStatusPending)},
		{&counts.InProgress, owned().Where("tasks.status = ?", models.TaskStatusInProgress)},
		{&counts.Completed, owned().Where("tasks.status = ?", models.TaskStatusCompleted)},
		{&counts.Overdue, owned().
			Where("tasks.due_date IS NOT NULL AND tasks.due_date < ?", today).
			Where("tasks.status <> ?", models.TaskStatusCompleted)},
		{&counts.InProject, owned().Where("tasks.project_id IS NOT NULL")},
		{&counts.Standalone, owned().Where("tasks.project_id IS NULL")},
	}

	for _, target := range targets {
		if err := target.query.Count(target.dest).Error; err != nil {
			return TaskCounts{}, err
		}
	}
	return counts, nil
}

func taskFilterScope(filter access.TaskFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(OwnedBy(filter.OwnerID))

		if filter.StandaloneOnly {
			db = db.Where("tasks.project_id IS NULL")
		} else if filter.ProjectID != nil {
			db = db.Where("tasks.project_id = ?", *filter.ProjectID)
		}
		if filter.Status != nil {
			db = db.Where("tasks.status = ?", *filter.Status)
		}
		if filter.Priority != nil {
			db = db.Where("tasks.priority = ?", *filter.Priority)
		}
		if filter.AssignedTo != nil {
			db = db.Where("tasks.assigned_to = ?", *filter.AssignedTo)
		}
		if filter.Search != nil && *filter.Search != "" {
			pattern := likePattern(strings.ToLower(*filter.Search))
			db = db.Where("(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?)", pattern, pattern)
		}
		return db
	}
}
