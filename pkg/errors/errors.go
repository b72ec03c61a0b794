// Package errors defines the sentinel errors shared by the query engine and
// the services around it, plus an AppError carrying an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupportedModel is returned when an operator is asked to score
	// under a retrieval model it does not implement.
	ErrUnsupportedModel = errors.New("unsupported retrieval model")
	// ErrContractViolation marks a broken iterator protocol. It is raised
	// with panic, never returned.
	ErrContractViolation = errors.New("iterator contract violation")
	ErrIndexIO           = errors.New("index i/o failure")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
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

// UnsupportedModel names the operator and the model that cannot be combined.
func UnsupportedModel(operator, model string) error {
	return fmt.Errorf("%w: %s does not support the %s model", ErrUnsupportedModel, operator, model)
}

// ContractViolation builds the value passed to panic when an iterator is
// used outside its protocol.
func ContractViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedModel):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrIndexIO):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
