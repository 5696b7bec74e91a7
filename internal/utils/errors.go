// Package utils holds small cross-cutting helpers: logging, error
// wrapping, and latency sampling.
package utils

import "fmt"

// AppError attaches the failing operation and a human-facing message to an
// underlying error. Op is a short verb ("analyze", "view"); Msg says what
// was being attempted when it failed.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	switch {
	case e.Err == nil && e.Msg == "":
		return e.Op
	case e.Err == nil:
		return e.Op + ": " + e.Msg
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
