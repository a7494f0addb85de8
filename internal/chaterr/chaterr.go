// Package chaterr defines the error taxonomy shared by the chat core.
// Every operation rejection carries one of these codes; the code is what
// goes out on the wire, the message is for humans.
package chaterr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	CodeAuthentication Code = "authentication_error"
	CodeAuthorization  Code = "authorization_error"
	CodeNotFound       Code = "not_found"
	CodeValidation     Code = "validation_error"
	CodePersistence    Code = "persistence_error"
	CodeRateLimited    Code = "rate_limited"
)

// Error is a coded chat error. Persistence errors wrap the store error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Authentication reports a bad or expired handshake credential.
func Authentication(format string, args ...any) *Error {
	return &Error{Code: CodeAuthentication, Message: fmt.Sprintf(format, args...)}
}

// Authorization reports an operation outside the caller's joined room or
// participant set.
func Authorization(format string, args ...any) *Error {
	return &Error{Code: CodeAuthorization, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing listing or user.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a malformed or oversized input, rejected before any
// persistence attempt.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Persistence reports a store failure on the durability path.
func Persistence(cause error, format string, args ...any) *Error {
	return &Error{Code: CodePersistence, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// RateLimited reports that the caller exceeded the publish rate limit.
func RateLimited(format string, args ...any) *Error {
	return &Error{Code: CodeRateLimited, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or CodePersistence for untyped
// errors reaching the wire.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodePersistence
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}
