package domain

import (
	"fmt"
	"net/http"
)

// ErrorKind categorizes the failures the orchestration pipeline can see.
type ErrorKind string

const (
	// ErrProviderUnavailable indicates a provider has no credential
	// configured and cannot be called.
	ErrProviderUnavailable ErrorKind = "provider_unavailable"

	// ErrProviderCallFailed indicates a transport/HTTP failure or timeout
	// while calling a provider.
	ErrProviderCallFailed ErrorKind = "provider_call_failed"

	// ErrParseFailure indicates a provider response was not valid
	// structured data.
	ErrParseFailure ErrorKind = "parse_failure"

	// ErrUnknownDomain indicates the caller supplied an unregistered domain.
	ErrUnknownDomain ErrorKind = "unknown_domain"

	// ErrNoSession indicates an operation referenced a nonexistent session.
	ErrNoSession ErrorKind = "no_session"
)

// PipelineError is a structured error carrying an ErrorKind. Provider and
// parse failures are recovered locally by the fallback cascade; domain and
// session errors surface to the caller as structured error results.
type PipelineError struct {
	Kind    ErrorKind
	Message string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatusCode returns the HTTP status appropriate for this error when it
// reaches the API boundary.
func (e *PipelineError) HTTPStatusCode() int {
	return e.Kind.HTTPStatusCode()
}

// HTTPStatusCode maps an error kind to the status served at the API
// boundary. Unrecognized kinds (including boundary panics, which carry no
// kind) map to 500.
func (k ErrorKind) HTTPStatusCode() int {
	switch k {
	case ErrUnknownDomain:
		return http.StatusBadRequest
	case ErrNoSession:
		return http.StatusNotFound
	case ErrProviderUnavailable, ErrProviderCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a PipelineError with the given kind and message.
func NewError(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Failure builds a failed ProviderResult for the given kind and detail.
func Failure(kind ErrorKind, format string, args ...any) *ProviderResult {
	return &ProviderResult{OK: false, ErrKind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Success builds an OK ProviderResult carrying text.
func Success(text string) *ProviderResult {
	return &ProviderResult{OK: true, Text: text}
}
