package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrHasDependents      = errors.New("has dependents")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrUserExists         = fmt.Errorf("username %w", ErrAlreadyExists)
	ErrRequestInProgress  = errors.New("request with this idempotency key is in progress")
	ErrOrderFailed        = errors.New("order transaction failed")
	ErrForbidden          = errors.New("forbidden")
)

// DependentsError reports what blocks a deletion.
type DependentsError struct {
	Entity    string
	ID        int64
	Dependent string
	Count     int
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("%s %d has %d %s", e.Entity, e.ID, e.Count, e.Dependent)
}

func (e *DependentsError) Unwrap() error { return ErrHasDependents }

var validate = validator.New()

// validationError flattens validator field errors into one ErrValidation.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
