package planner

import (
	"errors"
	"fmt"

	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
)

// Sentinel errors returned by Service. Typed errors below unwrap to them.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// QuotaError reports a free-tier ceiling that blocked a create.
type QuotaError struct {
	Resource quota.Resource
	Limit    int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s limit of %d reached; upgrade to add more", e.Resource, e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// notFoundOr maps store.ErrNotFound to ErrNotFound and wraps anything else.
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
