package macservice

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks a typing the service does not recognize as an allele code.
	ErrInvalidInput = errors.New("invalid allele")

	// ErrService marks transport, protocol and server failures.
	ErrService = errors.New("allele code service error")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = fmt.Errorf("%w: client closed", ErrService)
)

// invalidAlleleMarker is the text the service puts in rejections of unknown typings.
const invalidAlleleMarker = "Invalid allele"

// RequestError describes a failed lookup call.
type RequestError struct {
	Operation  string
	Endpoint   string
	StatusCode int
	Body       string
	Kind       error
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Operation, e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the failure kind and the underlying cause to errors.Is.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsInvalidInput reports whether err is a domain rejection of the input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// classifyStatus maps a non-success response to a failure kind.
func classifyStatus(status int, body string) error {
	if status == 400 || strings.Contains(body, invalidAlleleMarker) {
		return ErrInvalidInput
	}
	return ErrService
}
