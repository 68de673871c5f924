package service

import (
	"errors"
	"fmt"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/policy"
)

var (
	// ErrNotFound is returned when the target record does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when an authenticated actor fails a policy check
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when an anonymous actor attempts a mutation
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ImportError reports a document that could not be parsed at all
type ImportError struct {
	Message string
}

func (e *ImportError) Error() string {
	return e.Message
}

// denied converts a policy decision into an error, nil when allowed
func denied(actor models.Actor, d policy.Decision) error {
	if d.Allowed {
		return nil
	}
	if !actor.Authenticated || d.Unauthenticated() {
		return ErrUnauthenticated
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}
