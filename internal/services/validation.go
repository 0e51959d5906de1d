package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// CreateHabitInput is the accepted shape of a create-habit request.
// WeekDays must be present but may be empty; duplicates are kept.
type CreateHabitInput struct {
	Title    string `json:"title"    validate:"required,max=255"`
	WeekDays []int  `json:"weekDays" validate:"required,dive,min=0,max=6"`
}

// ToggleInput carries the path id of a toggle request.
type ToggleInput struct {
	ID string `json:"id" validate:"required,uuid"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return strings.ToLower(f.Name[:1]) + f.Name[1:]
			}
			return name
		})
	})
	return validate
}

// normalizeTitle trims surrounding whitespace and applies Unicode NFC so
// visually identical titles are stored identically.
func normalizeTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// validateStruct runs the struct validator and converts the first failure
// into a *ValidationError.
func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: fieldPath(fe), Reason: reason(fe)}
}

// fieldPath strips the struct name from the namespace: "CreateHabitInput.weekDays[0]" -> "weekDays[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed " + fe.Tag() + " constraint"
	}
}
