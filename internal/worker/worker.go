// Package worker runs background jobs pulled from Redis lists.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"task-platform/backend/internal/clock"

	"github.com/redis/go-redis/v9"
)

type JobType string

const (
	JobTypeVerificationEmail JobType = "verification_email"
	JobTypeCleanup           JobType = "cleanup"
)

const queuePrefix = "taskapi:jobs:"

const (
	QueueDefault = queuePrefix + "default"
	QueueRetry   = queuePrefix + "retry"
	QueueDead    = queuePrefix + "dead"
)

// QueueKeys maps short queue names such as "default" to their Redis list keys.
func QueueKeys(names []string) []string {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, queuePrefix) {
			keys = append(keys, name)
			continue
		}
		keys = append(keys, queuePrefix+name)
	}
	return keys
}

const defaultMaxTries = 3

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

// PayloadString returns a string payload field or "".
func (j *Job) PayloadString(key string) string {
	value, _ := j.Payload[key].(string)
	return value
}

type JobHandler func(ctx context.Context, job *Job) error

type Worker struct {
	client      *redis.Client
	handlers    map[JobType]JobHandler
	queues      []string
	pollTimeout time.Duration
	jobTimeout  time.Duration
	clock       clock.Clock
	logger      *slog.Logger
	mu          sync.RWMutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient  *redis.Client
	PollInterval time.Duration
	JobTimeout   time.Duration
	Queues       []string
	Clock        clock.Clock
	Logger       *slog.Logger
}

func NewWorker(config WorkerConfig) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	if len(config.Queues) == 0 {
		config.Queues = []string{QueueDefault, QueueRetry}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Worker{
		client:      config.RedisClient,
		handlers:    make(map[JobType]JobHandler),
		queues:      config.Queues,
		pollTimeout: config.PollInterval,
		jobTimeout:  config.JobTimeout,
		clock:       config.Clock,
		logger:      config.Logger,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches concurrency polling goroutines that run until Stop is
// called or ctx is done.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("starting worker", slog.Int("concurrency", concurrency), slog.Any("queues", w.queues))

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker")
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		deferred, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Error("error processing job", slog.Any("error", err))
		}
		if err != nil || deferred {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessNext pops one job and runs it. deferred reports a job that was
// pushed back because it is not due yet.
func (w *Worker) ProcessNext(ctx context.Context) (deferred bool, err error) {
	result, err := w.client.BLPop(ctx, w.pollTimeout, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return false, fmt.Errorf("invalid job result")
	}

	queue := result[0]
	jobData := result[1]

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return false, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if w.clock.Now().Before(job.ProcessAt) {
		return true, w.enqueueJob(ctx, queue, &job)
	}

	return false, w.executeJob(ctx, &job)
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		return w.moveToDeadQueue(ctx, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	logger := w.logger.With(slog.String("job_id", job.ID), slog.String("job_type", string(job.Type)))
	logger.Debug("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	if err := handler(jobCtx, job); err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			logger.Warn("job failed, retrying",
				slog.Int("attempt", job.Attempts),
				slog.Int("max_tries", job.MaxTries),
				slog.Any("error", err))
			return w.retryJob(ctx, job)
		}

		logger.Error("job failed permanently", slog.Int("attempts", job.Attempts), slog.Any("error", err))
		return w.moveToDeadQueue(ctx, job, err)
	}

	logger.Debug("job completed")
	return nil
}

// retryJob backs off exponentially: 2, 4, 8... minutes.
func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := time.Duration(1<<job.Attempts) * time.Minute
	job.ProcessAt = w.clock.Now().Add(delay)

	return w.enqueueJob(ctx, QueueRetry, job)
}

func (w *Worker) enqueueJob(ctx context.Context, queue string, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return w.client.RPush(ctx, queue, jobData).Err()
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	deadJob := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    w.clock.Now(),
	}

	deadJobData, err := json.Marshal(deadJob)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(ctx, QueueDead, deadJobData).Err()
}
