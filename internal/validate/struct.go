package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// FieldError describes one failed struct tag.
type FieldError struct {
	Field string // JSON name of the field
	Tag   string // Failing rule, e.g. "required"
	Param string // Rule parameter, e.g. "200" for max=200
}

// Error returns a human-readable message for the field.
func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "medialink":
		return fmt.Sprintf("%s must be a valid http(s) URL", e.Field)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// FieldErrors is the set of failures for one struct.
type FieldErrors []FieldError

// Error joins the individual messages.
func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(fe))
	for i, e := range fe {
		messages[i] = e.Error()
	}
	return strings.Join(messages, "; ")
}

// Validator returns the shared validator with the "medialink" rule registered.
// Field names in errors follow the json tag.
func Validator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation("medialink", func(fl validator.FieldLevel) bool {
			_, err := MediaLink(fl.Field().String())
			return err == nil
		})

		structValidator = v
	})
	return structValidator
}

// Struct validates s using its `validate` tags.
// Returns nil or FieldErrors.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
