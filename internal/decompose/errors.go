package decompose

import (
	"errors"
	"fmt"
)

// Errors returned when the model's reply cannot be used. All of them are
// fatal for the call that produced them.
var (
	ErrInvalidResponse = errors.New("invalid response structure from model")
	ErrEmptyResponse   = errors.New("empty response text from model")
	ErrTokenLimit      = errors.New("model output reached the max token limit")
	ErrInvalidJSON     = errors.New("could not parse JSON from model response")
)

// MissingKeyError reports a required key absent from the model's JSON.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("model response is missing required key %q", e.Key)
}

// InvocationError wraps a failure of the inference call itself.
type InvocationError struct {
	Op  string
	Err error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: model invocation failed: %v", e.Op, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
