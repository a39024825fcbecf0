// Package validation turns raw request field sets into an
// {errors, isValid} outcome using go-playground/validator struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Result struct {
	Errors  map[string]string
	IsValid bool
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate never returns an error: anything the validator cannot check is
// reported as an invalid outcome under the "input" key.
func (v *Validator) Validate(input any) Result {
	res := Result{Errors: map[string]string{}, IsValid: true}

	err := v.validate.Struct(input)
	if err == nil {
		return res
	}

	res.IsValid = false
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		res.Errors["input"] = err.Error()
		return res
	}
	for _, fe := range fieldErrs {
		if _, seen := res.Errors[fe.Field()]; seen {
			continue
		}
		res.Errors[fe.Field()] = message(fe)
	}
	return res
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s field is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return "Not a valid URL"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
