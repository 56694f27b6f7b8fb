package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error types for the record linkage engine
type ErrorType string

const (
	// Embedding errors
	ErrorTypeProvider          ErrorType = "provider"
	ErrorTypeDimensionMismatch ErrorType = "dimension_mismatch"
	ErrorTypeDegenerateVector  ErrorType = "degenerate_vector"

	// Input errors
	ErrorTypeInput ErrorType = "input"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// Sentinels usable with errors.Is against the typed errors below.
var (
	ErrProvider          = errors.New("embedding provider failure")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrDegenerateVector  = errors.New("degenerate vector")
)

// ProviderError reports a failed call to the embedding provider.
// StatusCode is zero when the failure happened before an HTTP response.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	Operation  string
	StatusCode int
	Underlying error
	Timestamp  time.Time
}

// NewProviderError creates a new provider error
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{
		Type:       ErrorTypeProvider,
		Provider:   provider,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithStatus records the HTTP status returned by the provider
func (e *ProviderError) WithStatus(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %v", e.Provider, e.Operation, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Is matches ErrProvider
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// DimensionMismatchError is returned when two vectors of different length are compared
type DimensionMismatchError struct {
	Type  ErrorType
	Left  int
	Right int
}

// NewDimensionMismatchError creates a new dimension mismatch error
func NewDimensionMismatchError(left, right int) *DimensionMismatchError {
	return &DimensionMismatchError{Type: ErrorTypeDimensionMismatch, Left: left, Right: right}
}

// Error implements the error interface
func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d != %d", e.Left, e.Right)
}

// Is matches ErrDimensionMismatch
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// DegenerateVectorError is returned when a zero-norm vector is used in a cosine comparison
type DegenerateVectorError struct {
	Type ErrorType
	Side string // "left" or "right"
}

// NewDegenerateVectorError creates a new degenerate vector error
func NewDegenerateVectorError(side string) *DegenerateVectorError {
	return &DegenerateVectorError{Type: ErrorTypeDegenerateVector, Side: side}
}

// Error implements the error interface
func (e *DegenerateVectorError) Error() string {
	return fmt.Sprintf("%s vector has zero norm", e.Side)
}

// Is matches ErrDegenerateVector
func (e *DegenerateVectorError) Is(target error) bool {
	return target == ErrDegenerateVector
}

// InputError represents a problem with a batch input file or row
type InputError struct {
	Type       ErrorType
	Path       string
	Row        int // 1-based data row, 0 when the whole file is affected
	Underlying error
	Timestamp  time.Time
}

// NewInputError creates a new input error
func NewInputError(path string, row int, err error) *InputError {
	return &InputError{
		Type:       ErrorTypeInput,
		Path:       path,
		Row:        row,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *InputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("input %s row %d: %v", e.Path, e.Row, e.Underlying)
	}
	return fmt.Sprintf("input %s: %v", e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *InputError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
