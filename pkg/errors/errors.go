// Package errors defines the sentinel errors shared across timecloud and an
// AppError wrapper that carries a process exit code for the CLI.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrStopwordsUnreadable = errors.New("stopwords file unreadable")
	ErrNoDocuments         = errors.New("no documents found")
	ErrEmptyToken          = errors.New("empty token")
	ErrInvariant           = errors.New("engine invariant violated")
	ErrSinkUnavailable     = errors.New("snapshot sink unavailable")
)

// Exit codes returned by the timecloud binary.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitNoDocuments = 3
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Configf builds an ErrInvalidConfig AppError for the named field.
func Configf(field string, format string, args ...any) *AppError {
	return Newf(ErrInvalidConfig, ExitConfig, "%s: %s", field, fmt.Sprintf(format, args...))
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrStopwordsUnreadable):
		return ExitConfig
	case errors.Is(err, ErrNoDocuments):
		return ExitNoDocuments
	default:
		return ExitFailure
	}
}
