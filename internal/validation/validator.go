// Package validation wraps go-playground/validator and converts its errors
// into field-level apperr validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/mehdibennis/cinema/internal/apperr"
	"github.com/mehdibennis/cinema/internal/model"
)

var (
	validate     *govalidator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance. Field names in errors are
// the JSON names of the struct fields.
func Validator() *govalidator.Validate {
	validateOnce.Do(func() {
		validate = govalidator.New(govalidator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("unreserved", func(fl govalidator.FieldLevel) bool {
			return !strings.HasPrefix(strings.ToLower(fl.Field().String()), model.ImportedUsernamePrefix)
		})
	})
	return validate
}

// Struct validates obj and returns nil or an *apperr.Error of kind Validation.
func Struct(obj any) error {
	err := Validator().Struct(obj)
	if err == nil {
		return nil
	}
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = Message(fe)
	}
	return apperr.ValidationFields(fields)
}

// Message renders a human-readable message for a single failed rule.
func Message(fe govalidator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("The maximum value is %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("The minimum value is %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Value should be greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Value should be less than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Value should be one of %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "alphanum":
		return "Value must be alphanumeric."
	case "unreserved":
		return "This value is reserved."
	case "datetime":
		return fmt.Sprintf("Date has wrong format. Use %s.", fe.Param())
	default:
		return "This field is invalid."
	}
}
