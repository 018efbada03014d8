package services

import (
	"context"
	"log/slog"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/repositories"

	"gorm.io/gorm"
)

// StatsService aggregates counts over everything a caller owns. Results are
// computed against the clock on every call and never cached.
type StatsService interface {
	TaskStats(ctx context.Context, caller access.Caller) (repositories.TaskCounts, error)
	ProjectStats(ctx context.Context, caller access.Caller) (repositories.ProjectCounts, error)
}

type StatsServiceImpl struct {
	tasks    repositories.TaskRepository
	projects repositories.ProjectRepository
	clock    clock.Clock
	logger   *slog.Logger
}

func NewStatsService(db *gorm.DB, clk clock.Clock, logger *slog.Logger) *StatsServiceImpl {
	return &StatsServiceImpl{
		tasks:    repositories.NewTaskRepository(db),
		projects: repositories.NewProjectRepository(db),
		clock:    clk,
		logger:   logger,
	}
}

func (s *StatsServiceImpl) TaskStats(ctx context.Context, caller access.Caller) (repositories.TaskCounts, error) {
	if !caller.Authenticated() {
		return repositories.TaskCounts{}, ErrUnauthenticated
	}
	counts, err := s.tasks.Counts(ctx, caller.UserID, models.Today(s.clock.Now()))
	if err != nil {
		s.logger.Error("task statistics failed", slog.String("user_id", caller.UserID.String()), slog.Any("error", err))
		return repositories.TaskCounts{}, Unexpected("Failed to retrieve statistics", err)
	}
	return counts, nil
}

func (s *StatsServiceImpl) ProjectStats(ctx context.Context, caller access.Caller) (repositories.ProjectCounts, error) {
	if !caller.Authenticated() {
		return repositories.ProjectCounts{}, ErrUnauthenticated
	}
	counts, err := s.projects.Counts(ctx, caller.UserID, models.Today(s.clock.Now()))
	if err != nil {
		s.logger.Error("project statistics failed", slog.String("user_id", caller.UserID.String()), slog.Any("error", err))
		return repositories.ProjectCounts{}, Unexpected("Failed to retrieve statistics", err)
	}
	return counts, nil
}
