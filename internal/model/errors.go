package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every TaskError unwraps to exactly one of these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage failure")
)

// TaskError represents a domain error for tasks.
type TaskError struct {
	Kind    error
	Message string
	Err     error
}

func (e TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e TaskError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

var (
	ErrTaskNotFound  = TaskError{Kind: ErrNotFound, Message: "Task not found"}
	ErrTitleRequired = TaskError{Kind: ErrInvalidInput, Message: "Title is required"}
	ErrInvalidStatus = TaskError{Kind: ErrInvalidInput, Message: "Status must be 'pending' or 'completed'"}
	ErrInvalidID     = TaskError{Kind: ErrInvalidInput, Message: "Invalid id"}
)

// StorageError wraps an underlying database error.
func StorageError(op string, err error) error {
	return TaskError{Kind: ErrStorage, Message: "failed to " + op, Err: err}
}

// Message returns the client-facing text for err. Storage and unknown
// failures collapse to a generic message.
func Message(err error) string {
	var te TaskError
	if errors.As(err, &te) && te.Kind != ErrStorage {
		return te.Message
	}
	return "Internal Server Error"
}
