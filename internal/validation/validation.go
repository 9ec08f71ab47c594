// Package validation configures the go-playground validator used for
// request payloads and configuration, and converts its errors into
// apperror field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/pessoa-api/internal/apperror"
	"github.com/aanand-mishra/pessoa-api/internal/types"
)

// Validator wraps a configured *validator.Validate. It is safe for
// concurrent use and should be created once.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New returns a Validator that
//   - reports fields by their JSON name ("nome", not "Name"),
//   - validates types.Date as a time.Time,
//   - understands the "notfuture" tag.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(types.Date); ok {
			return d.Time()
		}
		return nil
	}, types.Date{})

	// Registration only fails for an empty tag or nil func.
	_ = v.validate.RegisterValidation("notfuture", v.notFuture)

	return v
}

// notFuture accepts zero times and times not after today.
func (v *Validator) notFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	if t.IsZero() {
		return true
	}
	return !types.DateOf(t).Time().After(types.DateOf(v.now()).Time())
}

// Struct validates s and returns an *apperror.Error of kind
// KindBeanValidation listing every invalid field, or nil.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validation: %w", err)
	}

	return apperror.BeanValidation(FieldErrors(validationErrs))
}

// FieldErrors converts validator errors into one FieldError per field.
func FieldErrors(errs validator.ValidationErrors) []apperror.FieldError {
	fieldErrors := make([]apperror.FieldError, 0, len(errs))

	for _, e := range errs {
		fieldErrors = append(fieldErrors, apperror.FieldError{
			Field:         e.Field(),
			RejectedValue: rejectedValue(e.Value()),
			Message:       message(e),
		})
	}

	return fieldErrors
}

func message(e validator.FieldError) string {
	switch e.ActualTag() {
	case "required", "required_if":
		return fmt.Sprintf("field %s is required", e.Field())
	case "max":
		return fmt.Sprintf("field %s must be at most %s characters long", e.Field(), e.Param())
	case "min":
		return fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("field %s must be one of [%s]", e.Field(), e.Param())
	case "notfuture":
		return fmt.Sprintf("field %s must not be in the future", e.Field())
	default:
		return fmt.Sprintf("field %s is invalid", e.Field())
	}
}

// rejectedValue renders dates the way clients sent them.
func rejectedValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return types.DateOf(t).String()
	}
	return v
}
