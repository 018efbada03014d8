// Package access decides which projects and tasks a caller may see and
// mutate, and turns listing parameters into ownership-scoped filters.
//
// A task is owned through its project when project_id is set and directly
// through user_id otherwise. Denials are reported as ErrDenied and must be
// surfaced exactly like a missing record so callers cannot probe for other
// users' data.
package access

import (
	"errors"

	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
)

var ErrDenied = errors.New("access denied")

type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Caller is the authenticated identity on whose behalf an operation runs.
type Caller struct {
	UserID uuid.UUID
}

func NewCaller(userID uuid.UUID) Caller {
	return Caller{UserID: userID}
}

func (c Caller) Authenticated() bool {
	return c.UserID != uuid.Nil
}

type ProjectRef struct {
	OwnerID uuid.UUID
}

// TaskRef carries the ownership columns of a task. ProjectOwnerID must be
// populated whenever ProjectID is set.
type TaskRef struct {
	ProjectID      *uuid.UUID
	UserID         *uuid.UUID
	ProjectOwnerID *uuid.UUID
}

func ProjectRefOf(project *models.Project) ProjectRef {
	return ProjectRef{OwnerID: project.UserID}
}

func TaskRefOf(task *models.Task) TaskRef {
	ref := TaskRef{ProjectID: task.ProjectID, UserID: task.UserID}
	if task.Project != nil {
		owner := task.Project.UserID
		ref.ProjectOwnerID = &owner
	}
	return ref
}

// AuthorizeProject allows any action iff the caller owns the project.
func AuthorizeProject(caller Caller, project ProjectRef, action Action) error {
	if !caller.Authenticated() {
		return ErrDenied
	}
	if project.OwnerID != caller.UserID {
		return ErrDenied
	}
	return nil
}

// AuthorizeTask allows any action iff the task's project belongs to the
// caller, or the task is standalone and owned by the caller directly.
func AuthorizeTask(caller Caller, task TaskRef, action Action) error {
	if !caller.Authenticated() {
		return ErrDenied
	}
	if task.ProjectID != nil {
		if task.ProjectOwnerID != nil && *task.ProjectOwnerID == caller.UserID {
			return nil
		}
		return ErrDenied
	}
	if task.UserID != nil && *task.UserID == caller.UserID {
		return nil
	}
	return ErrDenied
}
