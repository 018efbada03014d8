// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"task-platform/backend/internal/database"
	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewDB returns a migrated, isolated in-memory sqlite database that is
// closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:       database.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1)),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     logger.Silent,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := database.Migrate(pool.DB); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return pool.DB
}

// CreateUser inserts a verified user with the given email.
func CreateUser(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()
	verifiedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	user := models.User{
		Name:            strings.Split(email, "@")[0],
		Email:           email,
		Password:        "not-a-real-hash",
		EmailVerifiedAt: &verifiedAt,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateProject inserts a project owned by ownerID.
func CreateProject(t testing.TB, db *gorm.DB, ownerID uuid.UUID, name string, createdAt time.Time) models.Project {
	t.Helper()
	project := models.Project{
		UserID:     ownerID,
		Name:       name,
		ClientName: "Client " + name,
		Status:     models.ProjectStatusActive,
		CreatedAt:  createdAt,
	}
	if err := db.Omit("Tasks").Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

// CreateTask inserts task as given; callers set the ownership fields.
func CreateTask(t testing.TB, db *gorm.DB, task models.Task) models.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if err := db.Omit("Project", "AssignedUser").Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func Ptr[T any](v T) *T {
	return &v
}
