package main

import (
	"testing"

	"task-platform/backend/internal/config"
)

func TestApplicationStartup(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("REDIS_HOST", "localhost")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg == nil {
		t.Fatal("Configuration should not be nil")
	}
	if cfg.IsProduction() {
		t.Error("Expected a non-production environment")
	}
	if cfg.GetDatabaseDSN() != ":memory:" {
		t.Errorf("Expected sqlite DSN :memory:, got %q", cfg.GetDatabaseDSN())
	}
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv(config.ConfigPathEnv, "")

	if _, err := config.LoadConfig(); err == nil {
		t.Fatal("Expected the default JWT secret to be rejected in production")
	}

	t.Setenv("JWT_SECRET", "a-real-production-secret")
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("Expected production environment")
	}
}

func TestConfigurationValues(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		read     func(*config.Config) string
	}{
		{
			name:     "APP_NAME environment variable",
			envVar:   "APP_NAME",
			envValue: "Task Platform Test",
			read:     func(c *config.Config) string { return c.App.Name },
		},
		{
			name:     "REDIS_HOST environment variable",
			envVar:   "REDIS_HOST",
			envValue: "cache.internal",
			read:     func(c *config.Config) string { return c.Redis.Host },
		},
		{
			name:     "APP_BASE_URL environment variable",
			envVar:   "APP_BASE_URL",
			envValue: "https://tasks.example.com",
			read:     func(c *config.Config) string { return c.App.BaseURL },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv(tt.envVar, tt.envValue)

			cfg, err := config.LoadConfig()
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if got := tt.read(cfg); got != tt.envValue {
				t.Errorf("Expected %v, got %v", tt.envValue, got)
			}
		})
	}
}
