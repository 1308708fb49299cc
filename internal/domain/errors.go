package domain

import (
	"fmt"
)

// IngestError reports an unreadable or malformed source table.
type IngestError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *IngestError) Unwrap() error {
	return e.Err
}

// SchemaError reports a column that an aggregate or view needs but the table lacks.
type SchemaError struct {
	Operation string
	Column    Column
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.Operation, e.Column)
}

// ViewError wraps the failure of a single view.
type ViewError struct {
	View string
	Err  error
}

// Error implements the error interface
func (e *ViewError) Error() string {
	return fmt.Sprintf("view %s: %v", e.View, e.Err)
}

// Unwrap returns the underlying error
func (e *ViewError) Unwrap() error {
	return e.Err
}

// IOError reports an artifact that could not be persisted.
type IOError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *IOError) Unwrap() error {
	return e.Err
}

// RegistrationError reports a failed presence registration. It is advisory:
// callers log it and carry on.
type RegistrationError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error
func (e *RegistrationError) Unwrap() error {
	return e.Err
}
