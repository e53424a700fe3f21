package stories

import (
	"errors"
	"fmt"
)

// Kind classifies controller failures.
type Kind string

const (
	KindValidation Kind = "VALIDATION_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
	KindInternal   Kind = "INTERNAL_ERROR"
)

// Error is a controller failure. Message is safe to show to callers; Err is
// the underlying cause and stays server-side.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Messages returned to callers.
const (
	MsgRequired         = "title and content are required"
	MsgNotFound         = "Story not found"
	MsgDatabase         = "Database error"
	MsgInvalidBody      = "invalid JSON body"
	MsgMethodNotAllowed = "Method Not Allowed"
)

func validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFound(err error) *Error {
	return &Error{Kind: KindNotFound, Message: MsgNotFound, Err: err}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: MsgDatabase, Err: err}
}

// KindOf returns the kind of err, treating anything that is not an *Error as
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
