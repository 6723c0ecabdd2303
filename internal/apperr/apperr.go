// Package apperr defines the error kinds crossing the engine/I-O boundary.
// Pure engines never return these; they are produced by validation and by the
// warehouse, apply, and config layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError is one validation failure surfaced to HTTP callers.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one or more field errors. Never retried.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a ValidationError from field/message pairs.
func NewValidation(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Field is shorthand for a FieldError.
func Field(field, message string) FieldError {
	return FieldError{Field: field, Message: message}
}

// AsValidation unwraps err into a ValidationError, or nil.
func AsValidation(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// ErrInsufficientData marks an empty input set or empty key join. The run
// completes with empty outputs; callers log a structured warning.
var ErrInsufficientData = errors.New("insufficient data")

// SinkError wraps a warehouse or apply-sink failure. Reads and warehouse
// writes are fatal to a run; apply failures are captured per record.
type SinkError struct {
	Sink string // "warehouse" | "apply"
	Op   string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %s: %v", e.Sink, e.Op, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// ConfigError marks a missing or malformed configuration value at startup.
// Fatal; no run begins.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
