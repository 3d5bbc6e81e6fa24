package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNoFile          ErrorCode = "NO_FILE"
	CodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"
	CodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	CodeParseFailed     ErrorCode = "PARSE_FAILED"
)

// PipelineError is the caller-facing failure of a parse request.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func NewPipelineError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the pipeline code carried by err, or "" if err is not a PipelineError.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

var (
	// ErrNoAdapterAvailable means no enabled adapter supports the media type.
	ErrNoAdapterAvailable = errors.New("no adapter available")

	// ErrDeclined is returned by an adapter that does not handle this input.
	// It is neither retried nor counted against the adapter's breaker.
	ErrDeclined = errors.New("adapter declined input")
)

// AdapterUnavailableError is returned when an adapter's breaker is open.
type AdapterUnavailableError struct {
	Adapter string
}

func (e *AdapterUnavailableError) Error() string {
	return fmt.Sprintf("adapter unavailable: %s: circuit open", e.Adapter)
}

// VendorUnavailableError covers every vendor transport problem: timeouts,
// non-2xx responses and payloads that are not the JSON we expect.
type VendorUnavailableError struct {
	Status int
	Cause  error
}

func (e *VendorUnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("vendor unavailable (status %d): %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("vendor unavailable: %v", e.Cause)
}

func (e *VendorUnavailableError) Unwrap() error {
	return e.Cause
}

// ExtractionFailedError means no adapter produced any text.
type ExtractionFailedError struct {
	MediaType string
	Attempts  []ExtractionAttempt
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed for %s after %d attempts", e.MediaType, len(e.Attempts))
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an adapter failure that retrying cannot fix, such as a
// missing OCR binary. It still counts as a breaker failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
