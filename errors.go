package stepwise

import "errors"

var (
	// ErrNoClient is returned when an Engine is created without a reasoning client.
	ErrNoClient = errors.New("reasoning client is required")

	// ErrEmptyObjective is returned when a planning entry point is called without an objective.
	ErrEmptyObjective = errors.New("objective is empty")

	// ErrNilInput is returned when a planning entry point is called with a nil input.
	ErrNilInput = errors.New("input is nil")

	// ErrInvalidInput is returned by provider sessions for input kinds they
	// do not support.
	ErrInvalidInput = errors.New("invalid input")

	// errNoResponse indicates the reasoning service returned no usable text.
	errNoResponse = errors.New("no response from reasoning service")

	// errUnparsable indicates no valid JSON value could be extracted from a response.
	errUnparsable = errors.New("no valid JSON in reasoning response")
)
