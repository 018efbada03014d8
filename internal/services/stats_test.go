package services_test

import (
	"testing"
	"time"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/services"
	"task-platform/backend/internal/testutil"

	"github.com/stretchr/testify/suite"
)

type StatsServiceTestSuite struct {
	ServiceSuite
}

func TestStatsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StatsServiceTestSuite))
}

func (s *StatsServiceTestSuite) TestTaskStats_OverdueBoundaryMovesWithClock() {
	project := s.createProject(s.alice, "Website")
	s.createTask(s.alice, services.CreateTaskInput{ProjectID: testutil.Ptr(project.ID.String()), Title: "due today", DueDate: testutil.Ptr("2026-03-10")})
	s.createTask(s.alice, services.CreateTaskInput{Title: "in progress", Status: models.TaskStatusInProgress})
	s.createTask(s.alice, services.CreateTaskInput{Title: "done", Status: models.TaskStatusCompleted, DueDate: testutil.Ptr("2026-03-10")})
	s.createTask(s.bob, services.CreateTaskInput{Title: "not mine", DueDate: testutil.Ptr("2026-03-10")})

	stats, err := s.stats.TaskStats(s.ctx, s.caller(s.alice))
	s.Require().NoError(err)
	s.Equal(int64(3), stats.Total)
	s.Equal(int64(1), stats.Pending)
	s.Equal(int64(1), stats.InProgress)
	s.Equal(int64(1), stats.Completed)
	s.Equal(int64(0), stats.Overdue)
	s.Equal(int64(1), stats.InProject)
	s.Equal(int64(2), stats.Standalone)

	s.clock.Advance(24 * time.Hour)
	stats, err = s.stats.TaskStats(s.ctx, s.caller(s.alice))
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Overdue)
}

func (s *StatsServiceTestSuite) TestProjectStats() {
	s.createProject(s.alice, "Active")
	_, err := s.projects.Create(s.ctx, s.caller(s.alice), services.CreateProjectInput{
		Name: "Late", ClientName: "Acme", EndDate: testutil.Ptr("2026-03-01"),
	})
	s.Require().NoError(err)
	_, err = s.projects.Create(s.ctx, s.caller(s.alice), services.CreateProjectInput{
		Name: "Shipped", ClientName: "Acme", Status: models.ProjectStatusCompleted, EndDate: testutil.Ptr("2026-03-01"),
	})
	s.Require().NoError(err)
	_, err = s.projects.Create(s.ctx, s.caller(s.alice), services.CreateProjectInput{
		Name: "Paused", ClientName: "Acme", Status: models.ProjectStatusOnHold,
	})
	s.Require().NoError(err)
	s.createProject(s.bob, "Bob's")

	stats, err := s.stats.ProjectStats(s.ctx, s.caller(s.alice))
	s.Require().NoError(err)
	s.Equal(int64(4), stats.Total)
	s.Equal(int64(2), stats.Active)
	s.Equal(int64(1), stats.Completed)
	s.Equal(int64(1), stats.OnHold)
	s.Equal(int64(0), stats.Cancelled)
	s.Equal(int64(1), stats.Overdue)
}

func (s *StatsServiceTestSuite) TestEmptyCaller() {
	stats, err := s.stats.TaskStats(s.ctx, s.caller(s.bob))
	s.Require().NoError(err)
	s.Equal(int64(0), stats.Total)

	_, err = s.stats.TaskStats(s.ctx, access.Caller{})
	s.requireKind(err, services.KindUnauthenticated)
}
