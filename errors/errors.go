package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation failures (rejected input).
var (
	ErrMissingField       = fmt.Errorf("required field is missing")
	ErrEmptyContent       = fmt.Errorf("message content is empty")
	ErrContentTooLong     = fmt.Errorf("message content exceeds the maximum length")
	ErrUnknownMessageType = fmt.Errorf("unknown message type")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrEmailTaken         = fmt.Errorf("email already registered")
	ErrUsernameTaken      = fmt.Errorf("username already taken")
	ErrInvalidPagination  = fmt.Errorf("invalid pagination parameters")
)

// ErrNotFound covers unknown users and messages. A delete attempted by a
// non-owner also reports ErrNotFound: existence and authorization are
// deliberately indistinguishable to the caller.
var ErrNotFound = fmt.Errorf("not found")

// Authentication failures.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrMissingToken       = fmt.Errorf("authorization token is missing")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)

// Is re-exports the standard errors.Is so packages importing this one
// under the errors name keep sentinel matching available.
func Is(err, target error) bool { return errors.Is(err, target) }

// HTTPStatus maps a domain error to its HTTP status code.
// Anything outside the taxonomy is an internal error: the caller logs the
// detail and sends a generic 500 body.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case IsAuth(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrContentTooLong) ||
		errors.Is(err, ErrUnknownMessageType) ||
		errors.Is(err, ErrInvalidPassword) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrInvalidPagination)
}

func IsAuth(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrMissingToken)
}

// PublicMessage returns the message safe to surface to a client.
// Internal errors are flattened to a generic message so no detail leaks.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
