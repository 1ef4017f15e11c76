package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/brewrank/internal/adapters/auth"
	"github.com/okian/brewrank/internal/domain/ranking"
)

// Kind classifies an API error and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindPermission
	KindConflict
	KindUnauthenticated
	KindUnavailable
)

// Error is an error annotated with the operation and kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewKind builds an Error of kind from a message.
func NewKind(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with op and the kind derived from the error chain.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Kind
	case errors.Is(err, ranking.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ranking.ErrInvalidArgument):
		return KindInvalid
	case errors.Is(err, ranking.ErrPermissionDenied):
		return KindPermission
	case errors.Is(err, ranking.ErrConflict):
		return KindConflict
	case errors.Is(err, ranking.ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}

// Status is the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable code written in error bodies.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid_argument"
	case KindPermission:
		return "permission_denied"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
