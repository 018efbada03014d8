package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"task-platform/backend/internal/middleware"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
)

type stubAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (s stubAuthenticator) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, services.Unauthenticated("Invalid or expired token")
}

func newAuthzRouter(auth middleware.Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthzMiddleware(auth, slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.GET("/protected", func(c *gin.Context) {
		caller := middleware.CallerFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id": caller.UserID.String(),
			"email":   middleware.UserFrom(c).Email,
			"token":   middleware.TokenFrom(c),
		})
	})
	return router
}

func TestAuthzMiddleware_RejectsMissingOrMalformedHeader(t *testing.T) {
	router := newAuthzRouter(stubAuthenticator{})

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer    "} {
		req, _ := http.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}
}

func TestAuthzMiddleware_InvalidToken(t *testing.T) {
	router := newAuthzRouter(stubAuthenticator{})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid_token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Unauthenticated"}`, w.Body.String())
}

func TestAuthzMiddleware_ValidTokenSetsCaller(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	router := newAuthzRouter(stubAuthenticator{users: map[string]*models.User{
		"good": {ID: id, Email: "alice@example.com"},
	}})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"`+id.String()+`","email":"alice@example.com","token":"good"}`, w.Body.String())
}

func TestAuthzMiddleware_BackendFailureIs500(t *testing.T) {
	router := newAuthzRouter(stubAuthenticator{err: services.Unexpected("Failed to load user", errors.New("db down"))})

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCallerFrom_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.False(t, middleware.CallerFrom(c).Authenticated())
	assert.Nil(t, middleware.UserFrom(c))
	assert.Empty(t, middleware.TokenFrom(c))
}
