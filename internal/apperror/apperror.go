// Package apperror defines the user-visible failure taxonomy and its mapping
// to HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError.
type Kind int

const (
	Internal Kind = iota
	BadRequest
	Unauthorized    // bad login credentials
	Unauthenticated // missing, invalid or expired token
	Conflict
	NotFound
)

// AppError is a terminal failure carrying the message shown to the caller.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized, Unauthenticated:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON body written for every error.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// ToResponse renders the error body. Internal errors never expose their cause.
func (e *AppError) ToResponse() Response {
	return Response{StatusCode: e.StatusCode(), Message: e.Message}
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewBadRequest(message string) *AppError {
	return New(BadRequest, message, nil)
}

func NewUnauthorized(message string) *AppError {
	return New(Unauthorized, message, nil)
}

func NewUnauthenticated(message string, err error) *AppError {
	return New(Unauthenticated, message, err)
}

func NewConflict(message string) *AppError {
	return New(Conflict, message, nil)
}

func NewNotFound(message string) *AppError {
	return New(NotFound, message, nil)
}

func NewInternal(err error) *AppError {
	return New(Internal, "Internal server error", err)
}

// From returns err as an *AppError, wrapping unknown errors as Internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
