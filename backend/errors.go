package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error for the HTTP status mapping in StatusCode.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAlreadyExists
	KindPermissionDenied
	KindInvalidInput
	KindLockConflict
)

// Error is the single error type that crosses the backend boundary. It
// corresponds to the Rust original's WebDavError enum, ported to Go's
// value-error idiom: a concrete struct implementing error, inspected with
// errors.As rather than a sentinel per kind.
type Error struct {
	Kind Kind
	Path string // set for NotFound / AlreadyExists / PermissionDenied
	Msg  string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("resource not found: %s", e.Path)
	case KindAlreadyExists:
		return fmt.Sprintf("resource already exists: %s", e.Path)
	case KindPermissionDenied:
		return fmt.Sprintf("permission denied: %s", e.Path)
	case KindInvalidInput:
		return fmt.Sprintf("invalid input: %s", e.Msg)
	case KindLockConflict:
		return "lock conflict"
	default:
		return fmt.Sprintf("internal error: %s", e.Msg)
	}
}

// StatusCode maps an Error to the HTTP status the handler should send, per
// spec.md §7's propagation policy.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindLockConflict:
		return http.StatusLocked
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(path string) error { return &Error{Kind: KindNotFound, Path: path} }

func AlreadyExists(path string) error { return &Error{Kind: KindAlreadyExists, Path: path} }

func PermissionDenied(path string) error { return &Error{Kind: KindPermissionDenied, Path: path} }

func InvalidInput(msg string) error { return &Error{Kind: KindInvalidInput, Msg: msg} }

func InvalidInputf(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func LockConflict() error { return &Error{Kind: KindLockConflict} }

func Internal(msg string) error { return &Error{Kind: KindInternal, Msg: msg} }

func Internalf(format string, args ...any) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...)}
}

// StatusCode maps any error to an HTTP status, defaulting unrecognised
// errors (e.g. from the standard library) to 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode()
	}
	return http.StatusInternalServerError
}
