// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer translates them to status
// codes in one place (handler/response.go). Sentinel errors are matched with
// errors.Is; the AppError wrapper carries the human-readable message and is
// extracted with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel, for errors.Is matching
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// InvalidCredentials is the single generic failure for any sign-in problem.
// Provider errors, unknown emails, and wrong passwords all collapse into this
// one message so unauthenticated callers learn nothing about which it was.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid email or password",
	}
}

// InvalidPassword is returned when an authenticated user supplies a wrong
// current password on /update/password. Unlike InvalidCredentials, the caller
// already holds a session, so naming the password as the problem is safe.
func InvalidPassword() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "invalid password",
		Field:   "password",
	}
}

func EmailTaken() *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "an account with this email already exists",
		Field:   "email",
	}
}

func InvalidEmailFormat() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "invalid email format",
		Field:   "email",
	}
}

// ActionProhibited covers policy rejections: signup disabled, admin details
// hidden, password changes while a trusted header proxy owns authentication.
func ActionProhibited(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func CreateUserFailed() *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: "failed to create user account",
	}
}

func CreateAPIKeyFailed() *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: "failed to create API key",
	}
}

func APIKeyNotFound() *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: "no API key has been generated for this account",
	}
}

// Default is the unclassified fallback.
func Default() *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: "something went wrong",
	}
}
