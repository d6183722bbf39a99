package planner

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/career-planner/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report JSON field names so errors line up with request bodies.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// validateStruct runs tag validation and converts the first failure into
// a *ValidationError.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Message: fieldMessage(fe)}
	}
	return &ValidationError{Message: err.Error()}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// validateStatus checks a work status against the allowed set.
func validateStatus(status model.WorkStatus) error {
	if err := validate.Var(string(status), "required,oneof=todo doing done"); err != nil {
		return &ValidationError{Field: "status", Message: "must be one of: todo doing done"}
	}
	return nil
}

// normalizeTitle trims surrounding whitespace; a blank title then fails
// the required tag.
func normalizeTitle(s string) string { return strings.TrimSpace(s) }

// validatePatchTitle enforces a non-null, non-blank title when present.
func validatePatchTitle(f model.Field[string]) (model.Field[string], error) {
	if !f.Present() {
		return f, nil
	}
	v, ok := f.Value()
	if !ok {
		return f, &ValidationError{Field: "title", Message: "cannot be null"}
	}
	v = normalizeTitle(v)
	if v == "" {
		return f, &ValidationError{Field: "title", Message: "is required"}
	}
	if utf8.RuneCountInString(v) > 200 {
		return f, &ValidationError{Field: "title", Message: "must be at most 200 characters"}
	}
	return model.Set(v), nil
}
