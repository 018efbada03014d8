package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"task-platform/backend/internal/cache"
	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/config"
	"task-platform/backend/internal/database"
	"task-platform/backend/internal/handlers"
	"task-platform/backend/internal/middleware"
	"task-platform/backend/internal/monitoring"
	"task-platform/backend/internal/repositories"
	"task-platform/backend/internal/services"
	"task-platform/backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// application is the wired server and its background parts.
type application struct {
	config      *config.Config
	logger      *slog.Logger
	pool        *database.DatabasePool
	redis       *redis.Client
	cache       *cache.MultiLevelCache
	worker      *worker.Worker
	scheduler   *worker.Scheduler
	rateLimiter *middleware.RateLimiter
	router      *gin.Engine
}

func newApplication(cfg *config.Config, logger *slog.Logger, clk clock.Clock) (*application, error) {
	app := &application{config: cfg, logger: logger}

	pool, err := database.NewDatabasePool(database.PoolConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	app.pool = pool

	var redisCache *cache.RedisCache
	var notifier services.VerificationNotifier = worker.NewInlineNotifier(logger)
	if cfg.Redis.Enabled {
		app.redis = cache.NewRedisClient(&cache.CacheConfig{
			Addr:         cfg.GetRedisAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		redisCache = cache.NewRedisCacheFromClient(app.redis, cache.DefaultCacheConfig().KeyPrefix)

		queue := worker.NewJobQueue(app.redis, clk)
		notifier = worker.NewQueueNotifier(queue)
		if cfg.Worker.Enabled {
			app.worker = worker.NewWorker(worker.WorkerConfig{
				RedisClient:  app.redis,
				PollInterval: cfg.Worker.PollInterval,
				Queues:       worker.QueueKeys(cfg.Worker.Queues),
				Clock:        clk,
				Logger:       logger,
			})
			app.scheduler = worker.NewScheduler(queue, cfg.Worker.CleanupInterval, logger)
		}
	}
	app.cache = cache.NewMultiLevelCache(redisCache, clk, logger)

	if app.worker != nil {
		app.worker.RegisterHandler(worker.JobTypeVerificationEmail, worker.NewVerificationEmailHandler(logger))
		app.worker.RegisterHandler(worker.JobTypeCleanup, worker.NewCleanupHandler(worker.CleanupConfig{
			VerificationTokens: repositories.NewVerificationTokenRepository(pool.DB),
			RefreshTokens:      repositories.NewRefreshTokenRepository(pool.DB),
			Cache:              app.cache,
			VerificationTTL:    cfg.Auth.VerificationTTL,
			Clock:              clk,
			Logger:             logger,
		}))
	}

	verification := services.NewVerificationService(pool.DB, services.VerificationConfig{
		Secret:  cfg.Auth.JWTSecret,
		BaseURL: cfg.App.BaseURL,
		TTL:     cfg.Auth.VerificationTTL,
	}, notifier, clk, logger)
	auth := services.NewAuthService(pool.DB, services.AuthConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		BCryptCost: cfg.Auth.BCryptCost,
	}, verification, cache.NewTokenDenylist(app.cache), clk, logger)

	monitor := monitoring.NewMonitor(clk)
	monitor.RegisterHealthCheck("database", pool.HealthContext)
	monitor.RegisterStats("database", func() interface{} { return pool.Stats() })
	monitor.RegisterStats("cache", func() interface{} { return app.cache.Stats() })
	if app.redis != nil {
		monitor.RegisterHealthCheck("redis", app.cache.Health)
	}

	if cfg.RateLimit.Enabled {
		app.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval, clk)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	app.router = handlers.NewRouter(handlers.RouterConfig{
		AppName:            cfg.App.Name,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		ExposeVerification: !cfg.IsProduction(),
		Auth:               auth,
		Verification:       verification,
		Projects:           services.NewProjectService(pool.DB, clk, logger),
		Tasks:              services.NewTaskService(pool.DB, clk, logger),
		Stats:              services.NewStatsService(pool.DB, clk, logger),
		RateLimiter:        app.rateLimiter,
		Monitor:            monitor,
		Logger:             logger,
	})

	return app, nil
}

// run serves HTTP until ctx is cancelled, then drains in-flight requests
// and stops the background goroutines.
func (a *application) run(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	background, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if a.worker != nil {
		a.worker.Start(background, a.config.Worker.Concurrency)
		defer a.worker.Stop()
	}
	if a.scheduler != nil {
		go a.scheduler.Run(background)
	}
	if a.rateLimiter != nil {
		go a.rateLimiter.Run(background, a.config.RateLimit.CleanupInterval)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.WriteTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (a *application) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	return errors.Join(errs...)
}
