// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"todosync/internal/service"
)

// Exit codes.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, invalid input, not found).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// FromError maps an error kind to an exit code. nil maps to Success.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
		return UserError
	case errors.Is(err, service.ErrAuth):
		return AuthError
	default:
		return BackendError
	}
}
