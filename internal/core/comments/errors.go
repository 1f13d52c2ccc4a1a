package comments

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error classification.
// Handlers map codes to HTTP statuses; clients switch on them.
type Code string

const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodePostNotFound       Code = "POST_NOT_FOUND"
	CodeParentNotFound     Code = "PARENT_NOT_FOUND"
	CodeParentPostMismatch Code = "PARENT_POST_MISMATCH"
	CodeNotFound           Code = "NOT_FOUND"
	CodeCommentNotFound    Code = "COMMENT_NOT_FOUND"
	CodeDuplicateFlag      Code = "DUPLICATE_FLAG"
	CodeInvalidAction      Code = "INVALID_ACTION"
	CodeQueryFailed        Code = "QUERY_FAILED"
	CodeInsertFailed       Code = "INSERT_FAILED"
	CodeUpdateFailed       Code = "UPDATE_FAILED"
	CodeUnexpected         Code = "UNEXPECTED_ERROR"
)

// Error carries a Code, a message safe to show to callers, and the underlying cause.
// The cause is only for logs; it is never rendered in responses.
type Error struct {
	Err     error
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the sentinels below work with errors.Is
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates an error with no underlying cause
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that preserves cause for logging
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

var (
	// ErrInvalidInput indicates caller-supplied data failed validation
	ErrInvalidInput = NewError(CodeInvalidInput, "invalid input")

	// ErrPostNotFound indicates the owning post doesn't exist
	ErrPostNotFound = NewError(CodePostNotFound, "Post not found")

	// ErrParentNotFound indicates the parent comment doesn't exist
	ErrParentNotFound = NewError(CodeParentNotFound, "Parent comment not found")

	// ErrParentPostMismatch indicates the parent belongs to a different post
	ErrParentPostMismatch = NewError(CodeParentPostMismatch, "Parent comment belongs to a different post")

	// ErrNotFound indicates the requested comment doesn't exist or is deleted
	ErrNotFound = NewError(CodeNotFound, "Comment not found")

	// ErrCommentNotFound is the moderation flavour of ErrNotFound
	ErrCommentNotFound = NewError(CodeCommentNotFound, "Comment not found")

	// ErrDuplicateFlag indicates the user already flagged this comment
	ErrDuplicateFlag = NewError(CodeDuplicateFlag, "You have already flagged this comment")

	// ErrInvalidAction indicates an unknown moderation action
	ErrInvalidAction = NewError(CodeInvalidAction, "Invalid moderation action")

	ErrQueryFailed  = NewError(CodeQueryFailed, "Failed to load comments")
	ErrInsertFailed = NewError(CodeInsertFailed, "Failed to save comment")
	ErrUpdateFailed = NewError(CodeUpdateFailed, "Failed to update comment")
	ErrUnexpected   = NewError(CodeUnexpected, "An unexpected error occurred")
)

// CodeOf extracts the Code from err. Untyped errors classify as CodeUnexpected.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnexpected
}

// IsNotFound checks if an error is any of the "not found" codes
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeNotFound, CodeCommentNotFound, CodePostNotFound, CodeParentNotFound:
		return true
	}
	return false
}

// IsValidationError checks if an error should be reported as bad input
func IsValidationError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidInput, CodeInvalidAction, CodeParentPostMismatch:
		return true
	}
	return false
}

// IsStorageError checks if an error came from the storage layer
func IsStorageError(err error) bool {
	switch CodeOf(err) {
	case CodeQueryFailed, CodeInsertFailed, CodeUpdateFailed:
		return true
	}
	return false
}

// invalidInput is shorthand for the most common validation failure
func invalidInput(message string) *Error {
	return NewError(CodeInvalidInput, message)
}
