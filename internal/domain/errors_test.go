package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Is(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("search: %w", &Error{Kind: ErrUpstreamRequest, Op: "search", Reason: ReasonTransport, Err: cause})

	if !errors.Is(err, ErrUpstreamRequest) {
		t.Error("errors.Is(kind) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(cause) = false")
	}
	if errors.Is(err, ErrUpstreamAuth) {
		t.Error("errors.Is(other kind) = true")
	}
}

func TestKindCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMissingConfiguration, "missing_configuration"},
		{ErrNotImplemented, "not_implemented"},
		{&Error{Kind: ErrUpstreamAuth}, "upstream_auth_failure"},
		{&Error{Kind: ErrUpstreamRequest}, "upstream_request_failure"},
		{&Error{Kind: ErrMalformedResponse}, "malformed_upstream_response"},
		{&Error{Kind: ErrEnrichment}, "enrichment_failure"},
		{ErrEmptyQuery, "invalid_query"},
		{errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := KindCode(tt.err); got != tt.want {
				t.Errorf("KindCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfoFromError_DoesNotLeakCause(t *testing.T) {
	err := &Error{
		Kind:   ErrUpstreamRequest,
		Op:     "fetch description",
		Reason: ReasonHTTPStatus,
		Status: 502,
		Err:    errors.New("upstream said: secret stack trace at db.internal:5432"),
	}

	info := InfoFromError(err)
	if info.Kind != "upstream_request_failure" {
		t.Errorf("Kind = %q", info.Kind)
	}
	if info.Reason != ReasonHTTPStatus {
		t.Errorf("Reason = %q", info.Reason)
	}
	if info.Status != 502 {
		t.Errorf("Status = %d", info.Status)
	}
	if strings.Contains(info.Message, "db.internal") {
		t.Errorf("Message leaks cause: %q", info.Message)
	}
}

func TestInfoFromError_Nil(t *testing.T) {
	if InfoFromError(nil) != nil {
		t.Error("InfoFromError(nil) should be nil")
	}
}

func TestReasonOf_Transport(t *testing.T) {
	if got := ReasonOf(fmt.Errorf("get: %w", context.DeadlineExceeded)); got != ReasonTimeout {
		t.Errorf("ReasonOf(deadline) = %q", got)
	}
	if got := ReasonOf(context.Canceled); got != ReasonCanceled {
		t.Errorf("ReasonOf(canceled) = %q", got)
	}
	if got := ReasonOf(&Error{Kind: ErrEnrichment, Reason: ReasonMissingURL}); got != ReasonMissingURL {
		t.Errorf("ReasonOf(explicit) = %q", got)
	}
}
