package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/header-mapper/internal/mapping"
)

// StatusError is implemented by errors that carry the HTTP status reported
// by a remote service. A zero status means the request never got a response.
type StatusError interface {
	error
	HTTPStatus() int
}

// IsTransient reports whether err is worth retrying: an error carrying a
// retryable HTTP status, or a network-level failure (timeouts, resets, DNS).
// Errors with a non-retryable status (401, 400, ...) are permanent, as are
// mapping failures that never reached the network.
func IsTransient(err error) bool {
	if err == nil || isMappingFailure(err) {
		return false
	}

	var se StatusError
	if errors.As(err, &se) && se.HTTPStatus() != 0 {
		return IsTransientHTTPStatus(se.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"unexpected eof",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// isMappingFailure reports errors raised by the mapper itself. Their messages
// quote header names and response text, so they must not reach the pattern
// match below.
func isMappingFailure(err error) bool {
	return errors.Is(err, mapping.ErrSchemaValidation) ||
		errors.Is(err, mapping.ErrResponseParse) ||
		errors.Is(err, mapping.ErrMissingConfiguration) ||
		errors.Is(err, mapping.ErrNoHeaders) ||
		errors.Is(err, mapping.ErrCanceled)
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504, // Gateway Timeout
		529: // Overloaded
		return true
	default:
		return false
	}
}
