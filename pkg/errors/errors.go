package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCorpus        = errors.New("invalid corpus")
	ErrEngineNotInitialized = errors.New("search engine not initialized")
	ErrVerseNotFound        = errors.New("verse not found")
	ErrTopicNotFound        = errors.New("topic not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrReloadInProgress     = errors.New("corpus reload already in progress")
	ErrInternal             = errors.New("internal error")
	ErrTimeout              = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrVerseNotFound), errors.Is(err, ErrTopicNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCorpus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrReloadInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrEngineNotInitialized), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
