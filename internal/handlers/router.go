package handlers

import (
	"log/slog"

	"task-platform/backend/internal/middleware"
	"task-platform/backend/internal/monitoring"
	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AppName            string
	AllowedOrigins     []string
	ExposeVerification bool

	Auth         services.AuthService
	Verification services.VerificationService
	Projects     services.ProjectService
	Tasks        services.TaskService
	Stats        services.StatsService

	// RateLimiter and Monitor are optional.
	RateLimiter *middleware.RateLimiter
	Monitor     *monitoring.Monitor
	Logger      *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryWithLog(cfg.Logger))
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.Monitor != nil {
		router.Use(cfg.Monitor.MetricsMiddleware())
		router.GET("/health", cfg.Monitor.HealthHandler())
		router.GET("/health/ready", cfg.Monitor.ReadinessHandler())
		router.GET("/health/live", cfg.Monitor.LivenessHandler())
		router.GET("/metrics", cfg.Monitor.MetricsHandler())
	}

	authHandler := NewAuthHandler(cfg.Auth, cfg.Verification, cfg.ExposeVerification, cfg.Logger)
	projectHandler := NewProjectHandler(cfg.Projects, cfg.Stats, cfg.Logger)
	taskHandler := NewTaskHandler(cfg.Tasks, cfg.Stats, cfg.Logger)

	api := router.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}
	api.GET("/dashboard", Dashboard(cfg.AppName))

	public := api.Group("/auth")
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.GET("/verify-email", authHandler.VerifyEmail)
	public.POST("/resend-verification", authHandler.ResendVerification)
	public.POST("/refresh", authHandler.Refresh)

	protected := api.Group("")
	protected.Use(middleware.AuthzMiddleware(cfg.Auth, cfg.Logger))
	protected.GET("/user", authHandler.Me)
	protected.POST("/auth/logout", authHandler.Logout)

	projects := protected.Group("/projects")
	projects.GET("", projectHandler.ListProjects)
	projects.POST("", projectHandler.CreateProject)
	projects.GET("/statistics", projectHandler.Statistics)
	projects.GET("/:id", projectHandler.GetProject)
	projects.PUT("/:id", projectHandler.UpdateProject)
	projects.PATCH("/:id", projectHandler.UpdateProject)
	projects.DELETE("/:id", projectHandler.DeleteProject)

	tasks := protected.Group("/tasks")
	tasks.GET("", taskHandler.GetTasks)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("/statistics", taskHandler.Statistics)
	tasks.GET("/:id", taskHandler.GetTaskByID)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.PATCH("/:id", taskHandler.UpdateTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)

	return router
}
