package errors

import (
	"errors"
)

// As is a wrapper around errors.As for call sites that import this package
// in place of the standard library one.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is a wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is a wrapper around errors.New.
func New(text string) error {
	return errors.New(text)
}
