// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"task-platform/backend/internal/access"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextToken  = "access_token"
)

// Authenticator resolves a bearer access token to its user.
type Authenticator interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// AuthzMiddleware rejects requests without a valid bearer token and stores
// the caller in the gin context.
func AuthzMiddleware(auth Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithMessage(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenStr, ok := bearerToken(authHeader)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "Authorization header must use Bearer token")
			return
		}

		user, err := auth.CurrentUser(c.Request.Context(), tokenStr)
		if err != nil {
			if services.KindOf(err) == services.KindUnauthenticated {
				abortWithMessage(c, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			logger.Error("authentication failed", slog.Any("error", err))
			abortWithMessage(c, http.StatusInternalServerError, "Authentication failed")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextToken, tokenStr)

		c.Next()
	}
}

// CallerFrom returns the authenticated caller set by AuthzMiddleware.
func CallerFrom(c *gin.Context) access.Caller {
	if id, ok := c.Get(ContextUserID); ok {
		if userID, ok := id.(uuid.UUID); ok {
			return access.NewCaller(userID)
		}
	}
	return access.Caller{}
}

func UserFrom(c *gin.Context) *models.User {
	if value, ok := c.Get(ContextUser); ok {
		if user, ok := value.(*models.User); ok {
			return user
		}
	}
	return nil
}

func TokenFrom(c *gin.Context) string {
	return c.GetString(ContextToken)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
