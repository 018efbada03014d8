package access

import (
	"strconv"
	"strings"

	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
)

const (
	PageSize = 15

	// StandaloneProjectFilter selects tasks that have no project.
	StandaloneProjectFilter = "standalone"
)

// RawTaskFilters holds listing parameters as supplied by the caller. A nil
// field means the parameter was not supplied.
type RawTaskFilters struct {
	Status     *string
	Priority   *string
	AssignedTo *string
	ProjectID  *string
	Search     *string
	Page       string
}

type RawProjectFilters struct {
	Status     *string
	ClientName *string
	Search     *string
	Page       string
}

// TaskFilter is the predicate applied when listing tasks. All set fields
// are ANDed with the ownership predicate for OwnerID. NoMatch short-circuits
// the query to an empty result.
type TaskFilter struct {
	OwnerID        uuid.UUID
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedTo     *uuid.UUID
	ProjectID      *uuid.UUID
	StandaloneOnly bool
	Search         *string
	NoMatch        bool
	Page           int
}

type ProjectFilter struct {
	OwnerID    uuid.UUID
	Status     *models.ProjectStatus
	ClientName *string
	Search     *string
	NoMatch    bool
	Page       int
}

func (f TaskFilter) Offset() int {
	return (f.Page - 1) * PageSize
}

func (f ProjectFilter) Offset() int {
	return (f.Page - 1) * PageSize
}

// BuildTaskFilter never rejects input: values that cannot match anything
// (unknown enum values, malformed ids) produce an empty result instead.
func BuildTaskFilter(caller Caller, raw RawTaskFilters) TaskFilter {
	filter := TaskFilter{
		OwnerID: caller.UserID,
		Page:    ParsePage(raw.Page),
		NoMatch: !caller.Authenticated(),
	}

	if raw.Status != nil {
		status := models.TaskStatus(*raw.Status)
		if !status.Valid() {
			filter.NoMatch = true
		}
		filter.Status = &status
	}

	if raw.Priority != nil {
		priority := models.TaskPriority(*raw.Priority)
		if !priority.Valid() {
			filter.NoMatch = true
		}
		filter.Priority = &priority
	}

	if raw.AssignedTo != nil {
		if id, ok := parseID(*raw.AssignedTo); ok {
			filter.AssignedTo = &id
		} else {
			filter.NoMatch = true
		}
	}

	if raw.ProjectID != nil {
		if *raw.ProjectID == StandaloneProjectFilter {
			filter.StandaloneOnly = true
		} else if id, ok := parseID(*raw.ProjectID); ok {
			filter.ProjectID = &id
		} else {
			filter.NoMatch = true
		}
	}

	if raw.Search != nil {
		search := strings.TrimSpace(*raw.Search)
		filter.Search = &search
	}

	return filter
}

func BuildProjectFilter(caller Caller, raw RawProjectFilters) ProjectFilter {
	filter := ProjectFilter{
		OwnerID: caller.UserID,
		Page:    ParsePage(raw.Page),
		NoMatch: !caller.Authenticated(),
	}

	if raw.Status != nil {
		status := models.ProjectStatus(*raw.Status)
		if !status.Valid() {
			filter.NoMatch = true
		}
		filter.Status = &status
	}

	if raw.ClientName != nil {
		clientName := strings.TrimSpace(*raw.ClientName)
		filter.ClientName = &clientName
	}

	if raw.Search != nil {
		search := strings.TrimSpace(*raw.Search)
		filter.Search = &search
	}

	return filter
}

// ParsePage returns a 1-based page number, falling back to 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.FromString(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
