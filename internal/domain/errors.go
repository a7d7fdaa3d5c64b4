package domain

import "fmt"

// FetchErrorKind classifies upstream API failures for retry decisions.
type FetchErrorKind string

const (
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchTransient   FetchErrorKind = "transient"
	FetchPermanent   FetchErrorKind = "permanent"
)

// FetchError wraps a failure from the vendor listing API.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the fetch may be attempted again.
// Rate-limited and transient failures are retryable; permanent ones are not.
func (e *FetchError) Retryable() bool { return e.Kind != FetchPermanent }

// TransformErrorKind classifies per-record mapping failures.
type TransformErrorKind string

const (
	TransformMissingRequiredField TransformErrorKind = "missing_required_field"
	TransformMalformedValue       TransformErrorKind = "malformed_value"
)

// TransformError reports why a single vendor record could not be mapped
// to the columnar schema. The record is dropped and counted, never retried.
type TransformError struct {
	Kind  TransformErrorKind
	Field string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: field %q", e.Kind, e.Field)
}

// WriteErrorKind classifies local columnar serialization failures.
type WriteErrorKind string

const (
	WriteEncoding WriteErrorKind = "encoding"
	WriteIO       WriteErrorKind = "io"
)

// WriteError wraps a failure while writing the local columnar file.
// Write failures are never retried; they fail the city job.
type WriteError struct {
	Kind WriteErrorKind
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("columnar write %s: %v", e.Kind, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// UploadErrorKind classifies object storage failures.
type UploadErrorKind string

const (
	UploadTransient      UploadErrorKind = "transient"
	UploadPermanent      UploadErrorKind = "permanent"
	UploadUnacknowledged UploadErrorKind = "unacknowledged"
)

// UploadError wraps a failure while uploading to object storage.
type UploadError struct {
	Kind UploadErrorKind
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload %s: %v", e.Kind, e.Err) }

func (e *UploadError) Unwrap() error { return e.Err }

// Retryable reports whether the upload may be attempted again.
func (e *UploadError) Retryable() bool { return e.Kind != UploadPermanent }
