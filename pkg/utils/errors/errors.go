// Package errors provides typed errors for the authentication flows.
// Each error carries a category and the stack captured where it was created.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of an error.
type ErrorType string

// Error types for the stages of a login.
const (
	TypeValidation ErrorType = "validation"
	TypeAccount    ErrorType = "account"
	TypeTwitter    ErrorType = "twitter"
	TypeIdentity   ErrorType = "identity"
	TypeSetup      ErrorType = "setup"
)

// Error represents a categorized error with a stack trace.
type Error struct {
	Type    ErrorType // The category of the error
	Message string    // A descriptive message about the error
	Err     error     // The underlying error, if any
	Stack   string    // The stack trace at the time of error creation
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error and captures the current stack.
func New(errType ErrorType, message string, err error) *Error {
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   string(stack[:n]),
	}
}

// Wrap adds context and a category to err.
// The stack of an existing *Error is preserved.
func Wrap(err error, errType ErrorType, message string) *Error {
	if originalErr, ok := err.(*Error); ok {
		return &Error{
			Type:    errType,
			Message: message,
			Err:     originalErr,
			Stack:   originalErr.Stack,
		}
	}
	return New(errType, message, err)
}

// Is matches another *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// TypeOf returns the type of the outermost *Error in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Type
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
