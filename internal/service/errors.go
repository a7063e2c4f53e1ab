package service

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is(err, ErrAuth) and friends to classify.
var (
	// ErrAuth covers missing, expired or invalid tokens and an unavailable provider.
	ErrAuth = errors.New("auth error")

	// ErrNetwork covers transport failures and non-auth HTTP errors.
	ErrNetwork = errors.New("network error")

	// ErrData covers malformed stored data.
	ErrData = errors.New("data error")

	// ErrValidation covers input rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a remote resource does not exist.
	ErrNotFound = errors.New("not found")
)

// Error carries an error kind, the failing operation and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// AuthError wraps err as an auth failure of op.
func AuthError(op string, err error) error { return newError(ErrAuth, op, err) }

// NetworkError wraps err as a network failure of op.
func NetworkError(op string, err error) error { return newError(ErrNetwork, op, err) }

// DataError wraps err as a data failure of op.
func DataError(op string, err error) error { return newError(ErrData, op, err) }

// NotFoundError wraps err as a not-found failure of op.
func NotFoundError(op string, err error) error { return newError(ErrNotFound, op, err) }

// ValidationError reports invalid input for op.
func ValidationError(op, msg string) error {
	return newError(ErrValidation, op, errors.New(msg))
}

// IsAuth reports whether err is an auth failure.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }
