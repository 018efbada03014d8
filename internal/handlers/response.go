package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"task-platform/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// responder writes the {success, data|errors, message} envelope every
// endpoint returns.
type responder struct {
	logger *slog.Logger
}

func (r responder) ok(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// fail maps a service error onto its HTTP status. Not-found and forbidden
// share 404.
func (r responder) fail(c *gin.Context, err error) {
	var serviceErr *services.Error
	if !errors.As(err, &serviceErr) {
		serviceErr = services.Unexpected("Internal server error", err)
	}

	switch serviceErr.Kind {
	case services.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": serviceErr.Message,
			"errors":  serviceErr.Fields,
		})
	case services.KindNotFound:
		r.message(c, http.StatusNotFound, serviceErr.Message)
	case services.KindConflict:
		r.message(c, http.StatusConflict, serviceErr.Message)
	case services.KindUnauthenticated:
		r.message(c, http.StatusUnauthorized, serviceErr.Message)
	case services.KindUnverified:
		r.message(c, http.StatusForbidden, serviceErr.Message)
	default:
		r.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("error", err))
		body := gin.H{"success": false, "message": serviceErr.Message}
		if serviceErr.Err != nil {
			body["error"] = serviceErr.Err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

func (r responder) message(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// bindJSON decodes the request body into dest. An empty body leaves dest
// untouched; malformed JSON is answered with 400.
func (r responder) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		r.message(c, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

// pathID parses the :id parameter. A malformed id cannot match a record, so
// it is reported as not found.
func (r responder) pathID(c *gin.Context, notFound string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil || id == uuid.Nil {
		r.message(c, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}

func queryPtr(c *gin.Context, key string) *string {
	if value, ok := c.GetQuery(key); ok {
		return &value
	}
	return nil
}
