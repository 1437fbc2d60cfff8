package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies failures surfaced to the view
type ErrorKind string

const (
	KindProviderLoginFailed   ErrorKind = "provider_login_failed"
	KindSessionExchangeFailed ErrorKind = "session_exchange_failed"
	KindFetchError            ErrorKind = "fetch_error"
	KindMutationFailed        ErrorKind = "mutation_failed"
	KindAlreadyInstalled      ErrorKind = "already_installed"
	KindTimeout               ErrorKind = "timeout"
	KindNoSession             ErrorKind = "no_session"
	KindUnknownPage           ErrorKind = "unknown_page"
	KindNotInstalled          ErrorKind = "not_installed"
	KindConfigIncomplete      ErrorKind = "config_incomplete"
	KindCommandInFlight       ErrorKind = "command_in_flight"
	KindInvalidField          ErrorKind = "invalid_field"
)

// Error carries a kind, the page it concerns (if any) and the underlying cause.
type Error struct {
	Kind   ErrorKind
	PageID string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.PageID != "" {
		msg += " (page " + e.PageID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.PageID == "" && t.Err == nil
}

// Sentinels for errors.Is checks
var (
	ErrProviderLoginFailed   = &Error{Kind: KindProviderLoginFailed}
	ErrSessionExchangeFailed = &Error{Kind: KindSessionExchangeFailed}
	ErrFetch                 = &Error{Kind: KindFetchError}
	ErrMutationFailed        = &Error{Kind: KindMutationFailed}
	ErrAlreadyInstalled      = &Error{Kind: KindAlreadyInstalled}
	ErrTimeout               = &Error{Kind: KindTimeout}
	ErrNoSession             = &Error{Kind: KindNoSession}
	ErrUnknownPage           = &Error{Kind: KindUnknownPage}
	ErrNotInstalled          = &Error{Kind: KindNotInstalled}
	ErrConfigIncomplete      = &Error{Kind: KindConfigIncomplete}
	ErrCommandInFlight       = &Error{Kind: KindCommandInFlight}
	ErrInvalidField          = &Error{Kind: KindInvalidField}
)

// NewError builds a kinded error
func NewError(kind ErrorKind, pageID string, err error) *Error {
	return &Error{Kind: kind, PageID: pageID, Err: err}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTimeout reports whether err comes from an expired deadline or a transport timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classify wraps a transport error as Timeout or as the given fallback kind.
func Classify(fallback ErrorKind, pageID string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	if IsTimeout(err) {
		return NewError(KindTimeout, pageID, err)
	}
	return NewError(fallback, pageID, err)
}

// Errorf is a shorthand for a kinded error with a formatted cause
func Errorf(kind ErrorKind, pageID string, format string, args ...any) *Error {
	return NewError(kind, pageID, fmt.Errorf(format, args...))
}
