// Package validation checks request payloads before they reach the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"pariposhan/internal/models"

	"github.com/go-playground/validator/v10"
)

var categoryRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return ValidateCategory(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("itemkind", func(fl validator.FieldLevel) bool {
		return models.ItemKind(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("reportkind", func(fl validator.FieldLevel) bool {
		return models.ReportTargetKind(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("reason", func(fl validator.FieldLevel) bool {
		return models.ReportReason(fl.Field().String()).Valid()
	})
	return v
}

// ValidateCategory accepts lowercase slugs such as "millets" or
// "ready-to-eat". Empty is allowed.
func ValidateCategory(category string) error {
	if category == "" {
		return nil
	}
	if !categoryRegex.MatchString(strings.ToLower(strings.TrimSpace(category))) {
		return fmt.Errorf("category must be a lowercase slug of at most 64 characters")
	}
	return nil
}

// Struct validates s against its `validate` tags. Failures come back as a
// VALIDATION_ERROR whose message names every offending field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), msgForTag(fe)))
	}
	return models.NewValidationError(strings.Join(msgs, "; "))
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "category":
		return "must be a lowercase slug"
	case "itemkind":
		return "must be post, article or product"
	case "reportkind":
		return "must be post, article, product, comment or review"
	case "reason":
		return "must be unsafe-practice, misinformation, spam, harassment or other"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
