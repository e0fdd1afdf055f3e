package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"tournament-registration/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("season", func(fl validator.FieldLevel) bool {
			return models.Season(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.Category(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("user_state", func(fl validator.FieldLevel) bool {
			return models.UserState(fl.Field().String()).Valid()
		})
	})
	return validate
}

// validateStruct returns the first failing field as a ValidationError.
func validateStruct(v interface{}) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing required field"
	case "season":
		return fmt.Sprintf("unknown season %v", fe.Value())
	case "category":
		return fmt.Sprintf("unknown category %v", fe.Value())
	case "user_state":
		return fmt.Sprintf("unknown user state %v", fe.Value())
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
