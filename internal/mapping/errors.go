package mapping

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the mapping stage. Every one of them is terminal for
// the submission; no partial MappingResult is returned alongside.
var (
	ErrNoHeaders            = eris.New("no headers to map")
	ErrMissingConfiguration = eris.New("mapping service credential is not configured")
	ErrServiceInvocation    = eris.New("mapping service call failed")
	ErrTimeout              = eris.New("mapping service call timed out")
	ErrCanceled             = eris.New("mapping request canceled")
	ErrResponseParse        = eris.New("failed to parse JSON from mapping response")
	ErrSchemaValidation     = eris.New("mapping response failed validation")
)

// ServiceInvocationError wraps a downstream failure (network, auth, quota).
// StatusCode is the HTTP status reported by the service, 0 if none.
type ServiceInvocationError struct {
	StatusCode int
	Err        error
}

func (e *ServiceInvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mapping service call failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("mapping service call failed: %v", e.Err)
}

func (e *ServiceInvocationError) Unwrap() error { return e.Err }

// HTTPStatus returns StatusCode.
func (e *ServiceInvocationError) HTTPStatus() int { return e.StatusCode }

// Is matches ErrServiceInvocation.
func (e *ServiceInvocationError) Is(target error) bool {
	return target == ErrServiceInvocation
}

// ResponseParseError reports that neither extraction stage produced a JSON
// object. Fenced and Braces hold each stage's failure.
type ResponseParseError struct {
	Fenced error
	Braces error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON from mapping response: fenced: %v; braces: %v", e.Fenced, e.Braces)
}

// Is matches ErrResponseParse.
func (e *ResponseParseError) Is(target error) bool {
	return target == ErrResponseParse
}

// SchemaValidationError names the offending field of a mapping response.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid mapping response: %s: %s", e.Field, e.Reason)
}

// Is matches ErrSchemaValidation.
func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}

func schemaErr(field, format string, args ...any) error {
	return &SchemaValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
