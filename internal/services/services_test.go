package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/cache"
	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/services"
	"task-platform/backend/internal/testutil"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var serviceEpoch = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	urls map[string][]string
	err  error
}

func (n *recordingNotifier) NotifyVerification(ctx context.Context, email, verificationURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.urls == nil {
		n.urls = map[string][]string{}
	}
	n.urls[email] = append(n.urls[email], verificationURL)
	return n.err
}

func (n *recordingNotifier) sent(email string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.urls[email]
}

// ServiceSuite wires every service against a fresh sqlite database and a
// fake clock.
type ServiceSuite struct {
	suite.Suite
	ctx          context.Context
	db           *gorm.DB
	clock        *clock.FakeClock
	logger       *slog.Logger
	notifier     *recordingNotifier
	tasks        *services.TaskServiceImpl
	projects     *services.ProjectServiceImpl
	stats        *services.StatsServiceImpl
	verification *services.VerificationServiceImpl
	auth         *services.AuthServiceImpl
	alice        models.User
	bob          models.User
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.clock = clock.Fake(serviceEpoch)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.notifier = &recordingNotifier{}

	s.tasks = services.NewTaskService(s.db, s.clock, s.logger)
	s.projects = services.NewProjectService(s.db, s.clock, s.logger)
	s.stats = services.NewStatsService(s.db, s.clock, s.logger)
	s.verification = services.NewVerificationService(s.db, services.VerificationConfig{
		Secret:  "test-secret",
		BaseURL: "http://localhost:8080/",
		TTL:     24 * time.Hour,
	}, s.notifier, s.clock, s.logger)
	denylist := cache.NewTokenDenylist(cache.NewMultiLevelCache(nil, s.clock, s.logger))
	s.auth = services.NewAuthService(s.db, services.AuthConfig{
		Secret:     "test-secret",
		Issuer:     "task-platform-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		BCryptCost: bcrypt.MinCost,
	}, s.verification, denylist, s.clock, s.logger)

	s.alice = testutil.CreateUser(s.T(), s.db, "alice@example.com")
	s.bob = testutil.CreateUser(s.T(), s.db, "bob@example.com")
}

func (s *ServiceSuite) caller(user models.User) access.Caller {
	return access.NewCaller(user.ID)
}

func (s *ServiceSuite) requireKind(err error, kind services.ErrorKind) *services.Error {
	s.Require().Error(err)
	var serviceErr *services.Error
	s.Require().True(errors.As(err, &serviceErr), "expected *services.Error, got %T: %v", err, err)
	s.Require().Equal(kind, serviceErr.Kind, "unexpected error: %v", err)
	return serviceErr
}

func (s *ServiceSuite) createProject(owner models.User, name string) *models.Project {
	project, err := s.projects.Create(s.ctx, s.caller(owner), services.CreateProjectInput{
		Name:       name,
		ClientName: "Acme",
	})
	s.Require().NoError(err)
	return project
}

func (s *ServiceSuite) createTask(owner models.User, input services.CreateTaskInput) *models.Task {
	task, err := s.tasks.Create(s.ctx, s.caller(owner), input)
	s.Require().NoError(err)
	return task
}

func (s *ServiceSuite) countTasks() int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.Task{}).Count(&n).Error)
	return n
}
