package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const apiVersion = "2.0.0"

// Dashboard lists the public and protected endpoints.
func Dashboard(appName string) gin.HandlerFunc {
	index := gin.H{
		"success": true,
		"message": appName + " API with JWT Authentication",
		"version": apiVersion,
		"authentication": gin.H{
			"POST /api/auth/register":            "Register a new user (requires email verification)",
			"POST /api/auth/login":               "Login user and get JWT token (requires verified email)",
			"GET /api/auth/verify-email":         "Verify email address with token",
			"POST /api/auth/resend-verification": "Resend email verification",
			"POST /api/auth/refresh":             "Exchange a refresh token for a new token pair",
			"GET /api/user":                      "Get authenticated user (requires Bearer token)",
			"POST /api/auth/logout":              "Logout user (requires Bearer token)",
		},
		"protected_endpoints": gin.H{
			"projects": gin.H{
				"GET /api/projects":            "List all projects (requires Bearer token)",
				"POST /api/projects":           "Create a new project (requires Bearer token)",
				"GET /api/projects/{id}":       "Get a specific project (requires Bearer token)",
				"PUT /api/projects/{id}":       "Update a project (requires Bearer token)",
				"DELETE /api/projects/{id}":    "Delete a project (requires Bearer token)",
				"GET /api/projects/statistics": "Get project statistics (requires Bearer token)",
			},
			"tasks": gin.H{
				"GET /api/tasks":            "List all tasks (requires Bearer token)",
				"POST /api/tasks":           "Create a new task (requires Bearer token)",
				"GET /api/tasks/{id}":       "Get a specific task (requires Bearer token)",
				"PUT /api/tasks/{id}":       "Update a task (requires Bearer token)",
				"DELETE /api/tasks/{id}":    "Delete a task (requires Bearer token)",
				"GET /api/tasks/statistics": "Get task statistics (requires Bearer token)",
			},
		},
		"note": "All protected endpoints require Authorization header with Bearer token",
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, index)
	}
}
