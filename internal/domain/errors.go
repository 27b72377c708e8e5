// Package domain holds the interaction record and the error taxonomy shared by
// the producer path and the persistence worker.
package domain

import (
	"errors"
	"fmt"
)

// Side identifies which half of an interaction an error refers to.
type Side string

const (
	SideRequest  Side = "request"
	SideResponse Side = "response"
)

var (
	// ErrMissingModel is returned when the response carries no usable model name.
	ErrMissingModel = errors.New("model name not found in response")

	// ErrDuplicateInteraction is returned by storage when the interaction_id
	// already exists.
	ErrDuplicateInteraction = errors.New("interaction already recorded")

	// ErrLoggerClosed is reported when Log is called after Close has started.
	ErrLoggerClosed = errors.New("logger is closed")
)

// MalformedInputError reports text input that could not be parsed as a JSON object.
type MalformedInputError struct {
	Err error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("string input is not valid JSON: %v", e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// TypeMismatchError reports input that is neither a map nor text.
type TypeMismatchError struct {
	Type string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("data must be a map or a JSON-formatted string, got %s", e.Type)
}

// ValidationError names the first required key missing from a payload.
type ValidationError struct {
	Side Side
	Key  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing key in %s: %s", e.Side, e.Key)
}

// SerializationError reports a payload that could not be encoded durably.
type SerializationError struct {
	Side Side
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize %s: %v", e.Side, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
