// Package errors provides a lightweight structured error type (BinderyError)
// for category-based classification across the compile pipeline and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a bindery error for classification
type ErrorCategory string

const (
	// Programming and internal consistency errors, never retried
	CategoryStructural ErrorCategory = "structural"
	CategoryInternal   ErrorCategory = "internal"

	// Environment errors (filesystem, lock sidecars)
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryLock       ErrorCategory = "lock"

	// Build and processing errors
	CategoryBuild    ErrorCategory = "build"
	CategoryTypeset  ErrorCategory = "typeset"
	CategoryTemplate ErrorCategory = "template"

	// Configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// BinderyError is a structured error with category, severity, and context
type BinderyError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for BinderyError
type ContextFields map[string]any

// Error implements the error interface
func (e *BinderyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *BinderyError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *BinderyError) WithContext(key string, value any) *BinderyError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BinderyError
func New(category ErrorCategory, severity ErrorSeverity, message string) *BinderyError {
	return &BinderyError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BinderyError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BinderyError {
	return &BinderyError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if be, ok := err.(*BinderyError); ok {
		return be.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a BinderyError
func GetCategory(err error) ErrorCategory {
	if be, ok := err.(*BinderyError); ok {
		return be.Category
	}
	return CategoryInternal
}
