// Package apperr carries the error taxonomy shared by the services and the
// HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	Validation        Kind = "validation"
	Signature         Kind = "signature"
	NotFound          Kind = "not_found"
	InvalidState      Kind = "invalid_state"
	Gateway           Kind = "gateway"
	AlreadySettled    Kind = "already_settled"
	InsufficientStock Kind = "insufficient_stock"
	Unauthorized      Kind = "unauthorized"
	Forbidden         Kind = "forbidden"
	RateLimited       Kind = "rate_limited"
	Internal          Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string // safe to show to the caller
	Err  error  // cause, logged only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &apperr.Error{Kind: apperr.NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func ValidationErr(msg string) *Error   { return New(Validation, msg) }
func NotFoundErr(msg string) *Error     { return New(NotFound, msg) }
func InvalidStateErr(msg string) *Error { return New(InvalidState, msg) }
func AlreadySettledErr(msg string) *Error {
	return New(AlreadySettled, msg)
}
func SignatureErr() *Error { return New(Signature, "Payment verification failed") }
func GatewayErr(msg string, err error) *Error {
	return Wrap(Gateway, msg, err)
}
func UnauthorizedErr(msg string) *Error { return New(Unauthorized, msg) }
func ForbiddenErr(msg string) *Error    { return New(Forbidden, msg) }

// Internal wraps an unexpected failure. The message shown to callers is generic.
func InternalErr(msg string, err error) *Error {
	return Wrap(Internal, msg, err)
}

// StockShortage describes one line that could not be fulfilled.
type StockShortage struct {
	ProductID string
	Requested int
}

// InsufficientStockError is returned when a decrement would drive stock
// below zero.
type InsufficientStockError struct {
	Items []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("product=%s requested=%d", it.ProductID, it.Requested))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// KindOf classifies any error. Unknown errors are Internal.
func KindOf(err error) Kind {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return InsufficientStock
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation, Signature, InvalidState, InsufficientStock:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AlreadySettled:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is what the caller sees. Internal causes never leak.
func PublicMessage(err error) string {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Error()
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	return "Internal server error"
}
