package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/sells-group/header-mapper/internal/mapping"
)

func TestIsTransient_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{529, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
	}
	for _, tt := range tests {
		if got := IsTransient(&statusErr{status: tt.status}); got != tt.want {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}

func TestIsTransient_ServiceInvocationError(t *testing.T) {
	overloaded := &mapping.ServiceInvocationError{StatusCode: 529, Err: errors.New("overloaded")}
	if !IsTransient(fmt.Errorf("map contacts.csv: %w", overloaded)) {
		t.Error("expected wrapped 529 service error to be transient")
	}

	unauthorized := &mapping.ServiceInvocationError{StatusCode: 401, Err: errors.New("invalid x-api-key")}
	if IsTransient(unauthorized) {
		t.Error("401 service error should not be transient")
	}

	network := &mapping.ServiceInvocationError{Err: fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)}
	if !IsTransient(network) {
		t.Error("status-less connection failure should be transient")
	}
}

func TestIsTransient_MappingFailuresArePermanent(t *testing.T) {
	for _, err := range []error{
		mapping.ErrMissingConfiguration,
		mapping.ErrNoHeaders,
		&mapping.ResponseParseError{Fenced: errors.New("x"), Braces: errors.New("y")},
		&mapping.SchemaValidationError{Field: "notes", Reason: "missing"},
	} {
		if IsTransient(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}
}

func TestIsTransient_MappingFailureQuotingNetworkText(t *testing.T) {
	for _, err := range []error{
		&mapping.SchemaValidationError{Field: "mapping.I/O timeout", Reason: "not a request header"},
		&mapping.SchemaValidationError{Field: "unmappedHeaders[0]", Reason: `"Connection refused" is not a request header`},
		&mapping.ResponseParseError{Fenced: errors.New("unexpected EOF"), Braces: errors.New("no braces")},
		fmt.Errorf("map leads.csv: %w", &mapping.SchemaValidationError{Field: "mapping.Broken pipe", Reason: "bad"}),
	} {
		if IsTransient(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"unexpected EOF",
	}
	for _, p := range patterns {
		if !IsTransient(errors.New(p)) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 405, 409, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}
