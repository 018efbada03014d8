package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"task-platform/backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and renders failures as
// per-field messages keyed by JSON name.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("task_priority", func(fl validator.FieldLevel) bool {
		return models.TaskPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("project_status", func(fl validator.FieldLevel) bool {
		return models.ProjectStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{validate: v}
}

// Struct returns nil or a validation *Error.
func (v *Validator) Struct(input interface{}) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return Unexpected("Validation could not be performed", err)
	}

	fields := make(map[string][]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		name := fieldErr.Field()
		fields[name] = append(fields[name], fieldMessage(fieldErr))
	}
	return NewValidationError(fields)
}

func fieldMessage(fieldErr validator.FieldError) string {
	label := strings.ReplaceAll(fieldErr.Field(), "_", " ")

	switch fieldErr.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", label, fieldErr.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", label, fieldErr.Param())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", strings.TrimSuffix(label, " confirmation"))
	case "uuid4", "uuid":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "task_status", "task_priority", "project_status", "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	default:
		return fmt.Sprintf("The %s field is invalid.", label)
	}
}

// mergeValidation combines validation errors from several checks into one.
func mergeValidation(errs ...error) error {
	fields := map[string][]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var serviceErr *Error
		if !errors.As(err, &serviceErr) || serviceErr.Kind != KindValidation {
			return err
		}
		for name, messages := range serviceErr.Fields {
			fields[name] = append(fields[name], messages...)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return NewValidationError(fields)
}
