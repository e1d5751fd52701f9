package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	// ErrConfig is raised before any I/O for bad build settings.
	ErrConfig ErrorType = iota
	// ErrExtraction means a candidate file is not a readable package.
	ErrExtraction
	// ErrIO covers missing directories, unwritable roots and corrupt manifests.
	ErrIO
	// ErrDepiction is the only soft failure: the index entry is still emitted.
	ErrDepiction
	// ErrState is returned when a build phase is invoked out of order or twice.
	ErrState
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrConfig:
		return "Config"
	case ErrExtraction:
		return "Extraction"
	case ErrIO:
		return "IO"
	case ErrDepiction:
		return "Depiction"
	case ErrState:
		return "State"
	default:
		return "Unknown"
	}
}

// Error represents an error during repository generation
type Error struct {
	Type    ErrorType
	Package string
	Path    string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	subject := e.Package
	if subject == "" {
		subject = e.Path
	}
	if subject != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, subject, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err, or any error it wraps, is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}
