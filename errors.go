package intersection

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the controller
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Configuration value is out of range
	ErrCodeInvalidConfiguration
	// Request is not allowed in the current state
	ErrCodeIllegalTransition
	// Persistent storage failed
	ErrCodePersistence
)

// ConfigurationError represents a rejected configuration value
type ConfigurationError struct {
	Field string
	Issue string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, issue string) *ConfigurationError {
	return &ConfigurationError{
		Field: field,
		Issue: issue,
	}
}

// TransitionError represents a request the controller refused.
// It is reported through the log and observers, never returned as a failure.
type TransitionError struct {
	Phase     Phase
	Emergency EmergencyState
	Input     Input
	Reason    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal request %s in %s (emergency %s): %s", e.Input, e.Phase, e.Emergency, e.Reason)
}

// NewTransitionError creates a new illegal transition request error
func NewTransitionError(phase Phase, emergency EmergencyState, input Input, reason string) *TransitionError {
	return &TransitionError{
		Phase:     phase,
		Emergency: emergency,
		Input:     input,
		Reason:    reason,
	}
}

// PersistenceError represents a failed load or save of engine state
type PersistenceError struct {
	Operation   string
	Key         string
	OriginalErr error
}

func (e *PersistenceError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("persistence %s %q failed: %v", e.Operation, e.Key, e.OriginalErr)
	}
	return fmt.Sprintf("persistence %s %q failed", e.Operation, e.Key)
}

func (e *PersistenceError) Unwrap() error {
	return e.OriginalErr
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(operation, key string, err error) *PersistenceError {
	return &PersistenceError{
		Operation:   operation,
		Key:         key,
		OriginalErr: err,
	}
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsTransitionError checks if an error is a TransitionError
func IsTransitionError(err error) bool {
	var target *TransitionError
	return errors.As(err, &target)
}

// IsPersistenceError checks if an error is a PersistenceError
func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrCodeNone
	case IsConfigurationError(err):
		return ErrCodeInvalidConfiguration
	case IsTransitionError(err):
		return ErrCodeIllegalTransition
	case IsPersistenceError(err):
		return ErrCodePersistence
	default:
		return ErrCodeNone
	}
}
