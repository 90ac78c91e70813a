package model

import "fmt"

// InvalidAmountError reports a monetary input that cannot be computed
type InvalidAmountError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *InvalidAmountError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid amount %s: %s (value=%v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("invalid amount %s: %s", e.Field, e.Message)
}

// NewInvalidAmountError creates a new invalid amount error
func NewInvalidAmountError(field string, value interface{}, message string) *InvalidAmountError {
	return &InvalidAmountError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// RenderOverflowError reports that the items do not fit on a single page
type RenderOverflowError struct {
	Items    int
	Capacity int
}

func (e *RenderOverflowError) Error() string {
	return fmt.Sprintf("render overflow: %d items exceed page capacity of %d", e.Items, e.Capacity)
}

// NewRenderOverflowError creates a new render overflow error
func NewRenderOverflowError(items, capacity int) *RenderOverflowError {
	return &RenderOverflowError{
		Items:    items,
		Capacity: capacity,
	}
}

// MappingError reports a snapshot that cannot be mapped to the structured layer
type MappingError struct {
	Field   string
	Message string
	Cause   error
}

func (e *MappingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mapping failed on %s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("mapping failed on %s: %s", e.Field, e.Message)
}

func (e *MappingError) Unwrap() error {
	return e.Cause
}

// NewMappingError creates a new mapping error
func NewMappingError(field, message string, cause error) *MappingError {
	return &MappingError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// PackagingError reports a failure while assembling the container
type PackagingError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *PackagingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("packaging failed [%s]: %s (%v)", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("packaging failed [%s]: %s", e.Stage, e.Message)
}

func (e *PackagingError) Unwrap() error {
	return e.Cause
}

// NewPackagingError creates a new packaging error
func NewPackagingError(stage, message string, cause error) *PackagingError {
	return &PackagingError{
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// DecodeError reports malformed snapshot input
type DecodeError struct {
	Field   string
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode failed: %s (%v)", e.Message, e.Cause)
	}
	if e.Cause != nil {
		return fmt.Sprintf("decode failed on %s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("decode failed on %s: %s", e.Field, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates a new decode error
func NewDecodeError(field, message string, cause error) *DecodeError {
	return &DecodeError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}
