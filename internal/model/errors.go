package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrLoad        = errors.New("load error")
	ErrFetch       = errors.New("fetch error")
	ErrShape       = errors.New("shape error")
	ErrInference   = errors.New("inference error")
	ErrEmptyScores = errors.New("empty scores")
	ErrLabelIndex  = errors.New("label index error")
)

// Error carries the kind of failure, the stage that produced it and the cause.
type Error struct {
	Kind  error
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error for stage with the given kind and cause.
func NewError(kind error, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind error, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or nil when err is not one of ours.
func KindOf(err error) error {
	for _, kind := range []error{ErrLoad, ErrFetch, ErrShape, ErrInference, ErrEmptyScores, ErrLabelIndex} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
