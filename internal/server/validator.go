package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"zarachat/internal/core"
)

// requestValidator adapts go-playground/validator to echo.Validator and
// reports failures as ValidationErrors keyed by JSON field path.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.NewValidationError("invalid request: " + err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldPath(fe)+": "+describe(fe))
	}
	return core.NewValidationError(strings.Join(messages, "; "))
}

// fieldPath drops the root struct name: "ChatRequest.messages[0].role" → "messages[0].role".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
