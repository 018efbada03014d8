package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/repositories"
)

// NewVerificationEmailHandler delivers verification links. There is no mail
// transport; the link is written to the log.
func NewVerificationEmailHandler(logger *slog.Logger) JobHandler {
	return func(ctx context.Context, job *Job) error {
		email := job.PayloadString("email")
		link := job.PayloadString("url")
		if email == "" || link == "" {
			return fmt.Errorf("verification job %s is missing email or url", job.ID)
		}
		logger.Info("verification email",
			slog.String("email", email),
			slog.String("verification_url", link))
		return nil
	}
}

type ExpiringCache interface {
	PurgeExpired() int
}

type CleanupConfig struct {
	VerificationTokens repositories.VerificationTokenRepository
	RefreshTokens      repositories.RefreshTokenRepository
	Cache              ExpiringCache
	VerificationTTL    time.Duration
	Clock              clock.Clock
	Logger             *slog.Logger
}

// NewCleanupHandler purges expired verification tokens, refresh tokens and
// local cache entries.
func NewCleanupHandler(config CleanupConfig) JobHandler {
	return func(ctx context.Context, job *Job) error {
		now := config.Clock.Now()

		verifications, err := config.VerificationTokens.DeleteIssuedBefore(ctx, now.Add(-config.VerificationTTL))
		if err != nil {
			return fmt.Errorf("purging verification tokens: %w", err)
		}
		refreshes, err := config.RefreshTokens.DeleteExpired(ctx, now)
		if err != nil {
			return fmt.Errorf("purging refresh tokens: %w", err)
		}
		var cached int
		if config.Cache != nil {
			cached = config.Cache.PurgeExpired()
		}

		config.Logger.Info("cleanup finished",
			slog.Int64("verification_tokens", verifications),
			slog.Int64("refresh_tokens", refreshes),
			slog.Int("cache_entries", cached))
		return nil
	}
}

// QueueNotifier hands verification links to the worker.
type QueueNotifier struct {
	queue *JobQueue
}

func NewQueueNotifier(queue *JobQueue) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) NotifyVerification(ctx context.Context, email, verificationURL string) error {
	return n.queue.Enqueue(ctx, QueueDefault, JobTypeVerificationEmail, map[string]interface{}{
		"email": email,
		"url":   verificationURL,
	})
}

// InlineNotifier runs the verification handler synchronously. It is used
// when Redis is disabled.
type InlineNotifier struct {
	handler JobHandler
}

func NewInlineNotifier(logger *slog.Logger) *InlineNotifier {
	return &InlineNotifier{handler: NewVerificationEmailHandler(logger)}
}

func (n *InlineNotifier) NotifyVerification(ctx context.Context, email, verificationURL string) error {
	return n.handler(ctx, &Job{
		ID:      "inline",
		Type:    JobTypeVerificationEmail,
		Payload: map[string]interface{}{"email": email, "url": verificationURL},
	})
}

// Scheduler enqueues a cleanup job every interval.
type Scheduler struct {
	queue    *JobQueue
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(queue *JobQueue, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{queue: queue, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.queue.Enqueue(ctx, QueueDefault, JobTypeCleanup, nil); err != nil && ctx.Err() == nil {
				s.logger.Warn("failed to schedule cleanup", slog.Any("error", err))
			}
		}
	}
}
