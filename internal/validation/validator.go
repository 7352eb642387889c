// Package validation wraps go-playground/validator with a shared instance.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type fieldError struct {
	field string
	tag   string
}

// Error collects every failed rule of a struct
type Error struct {
	fields []fieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", f.field, f.tag))
	}
	return "validation: " + strings.Join(parts, "; ")
}

// FailedFields lists the field names that failed validation in err, or nil
// when err is not a validation error
func FailedFields(err error) []string {
	var verr *Error
	if !errors.As(err, &verr) {
		return nil
	}
	names := make([]string, 0, len(verr.fields))
	for _, f := range verr.fields {
		names = append(names, f.field)
	}
	return names
}

// Struct validates s against its `validate` tags. It returns nil or an *Error.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{fields: make([]fieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.fields = append(out.fields, fieldError{field: fe.Field(), tag: fe.Tag()})
	}
	return out
}
