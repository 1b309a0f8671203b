package sparql

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is reported when the endpoint answers with Content-Length: 0.
var ErrEmptyResponse = errors.New("No content in response") //nolint:staticcheck // user-facing message

// ErrAlreadyStarted is returned by Executor.Start when the executor has already run a job.
var ErrAlreadyStarted = errors.New("executor already started")

// TransportError wraps a failure of the HTTP round trip itself, including
// responses with a non-2xx status.
type TransportError struct {
	StatusCode int // zero when no response was received
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("HTTP Error %s", e.Status)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnsupportedContentTypeError is reported for responses that are neither
// text/plain nor application/json.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("Response content type not supported: %s", e.ContentType)
}

// MalformedResultError is reported when a JSON body does not have the
// head.vars / results.bindings shape.
type MalformedResultError struct {
	Err error
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("malformed query result: %v", e.Err)
}

func (e *MalformedResultError) Unwrap() error { return e.Err }
