package config

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ValidationError.
type ErrorKind uint8

const (
	MissingKey ErrorKind = iota + 1
	TypeMismatch
	OutOfRange
	InvalidChoice
	InvalidShape
)

func (k ErrorKind) String() string {
	switch k {
	case MissingKey:
		return "missing key"
	case TypeMismatch:
		return "type mismatch"
	case OutOfRange:
		return "out of range"
	case InvalidChoice:
		return "invalid choice"
	case InvalidShape:
		return "invalid shape"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is, one per kind.
var (
	ErrMissingKey    = errors.New("missing key")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrOutOfRange    = errors.New("out of range")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrInvalidShape  = errors.New("invalid shape")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case MissingKey:
		return ErrMissingKey
	case TypeMismatch:
		return ErrTypeMismatch
	case OutOfRange:
		return ErrOutOfRange
	case InvalidChoice:
		return ErrInvalidChoice
	case InvalidShape:
		return ErrInvalidShape
	}
	return nil
}

// ValidationError reports a rejected transformation parameter.
type ValidationError struct {
	Kind    ErrorKind
	Key     string // transformation key
	Field   string // offending parameter, "object" for the payload itself
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s '%s' %s", e.Key, e.Field, e.Message)
	}
	return fmt.Sprintf("%s %s", e.Key, e.Message)
}

// Unwrap exposes the kind sentinel so errors.Is(err, ErrOutOfRange) works.
func (e *ValidationError) Unwrap() error {
	return e.Kind.sentinel()
}

// NewValidationError creates a classified validation error.
func NewValidationError(kind ErrorKind, key, field, message string) *ValidationError {
	return &ValidationError{Kind: kind, Key: key, Field: field, Message: message}
}

// KindOf returns the kind of the first ValidationError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return 0, false
}
