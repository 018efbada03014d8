package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
)

func parseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.FromString(strings.TrimSpace(*raw))
	if err != nil || id == uuid.Nil {
		return nil, FieldError(field, fmt.Sprintf("The selected %s is invalid.", strings.ReplaceAll(field, "_", " ")))
	}
	return &id, nil
}

func parseOptionalDate(field string, raw *string) (*models.Date, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	date, err := models.ParseDate(strings.TrimSpace(*raw))
	if err != nil {
		return nil, FieldError(field, fmt.Sprintf("The %s field must be a valid date.", strings.ReplaceAll(field, "_", " ")))
	}
	return &date, nil
}

// optionalText maps an explicit null to nil.
func optionalText(o models.Optional[string]) *string {
	if o.Null {
		return nil
	}
	value := o.Value
	return &value
}

// normalizeText treats blank strings as null.
func normalizeText(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDate(a, b *models.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b.Time)
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// asServiceError passes classified errors through and wraps anything else.
func asServiceError(err error, message string) error {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return Unexpected(message, err)
}
