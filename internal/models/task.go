package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Project struct {
	ID          uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Name        string        `json:"name" gorm:"size:255;not null"`
	Description *string       `json:"description"`
	ClientName  string        `json:"client_name" gorm:"size:255;not null"`
	Status      ProjectStatus `json:"status" gorm:"size:20;not null;default:'active';index"`
	StartDate   *Date         `json:"start_date" gorm:"type:date"`
	EndDate     *Date         `json:"end_date" gorm:"type:date"`
	CreatedAt   time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time     `json:"updated_at"`

	TasksCount *int64 `json:"tasks_count,omitempty" gorm:"->;-:migration"`
	Tasks      []Task `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	return assignID(&p.ID)
}

// Task is owned either through its project or directly through UserID,
// never both.
type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID   *uuid.UUID   `json:"project_id" gorm:"type:uuid;index"`
	UserID      *uuid.UUID   `json:"user_id" gorm:"type:uuid;index"`
	Title       string       `json:"title" gorm:"size:255;not null"`
	Description *string      `json:"description"`
	Status      TaskStatus   `json:"status" gorm:"size:20;not null;default:'pending';index"`
	Priority    TaskPriority `json:"priority" gorm:"size:20;not null;default:'medium';index"`
	AssignedTo  *uuid.UUID   `json:"assigned_to" gorm:"type:uuid;index"`
	DueDate     *Date        `json:"due_date" gorm:"type:date;index"`
	CompletedAt *time.Time   `json:"completed_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Project      *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	AssignedUser *User    `json:"assigned_user,omitempty" gorm:"foreignKey:AssignedTo"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	return assignID(&t.ID)
}

func (t *Task) HasProject() bool {
	return t.ProjectID != nil
}

func (t *Task) IsStandalone() bool {
	return t.ProjectID == nil
}
