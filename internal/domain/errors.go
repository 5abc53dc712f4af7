package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Error kinds. Every failure the agent reports is classified as one of these.
var (
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrNotImplemented       = errors.New("not implemented")
	ErrUpstreamAuth         = errors.New("upstream authentication failed")
	ErrUpstreamRequest      = errors.New("upstream request failed")
	ErrMalformedResponse    = errors.New("malformed upstream response")
	ErrEnrichment           = errors.New("enrichment failed")
)

var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrQueryTooLong = errors.New("query too long")
)

// Failure reasons carried alongside a kind.
const (
	ReasonTimeout     = "timeout"
	ReasonCanceled    = "canceled"
	ReasonTransport   = "transport"
	ReasonHTTPStatus  = "http_status"
	ReasonDecode      = "decode"
	ReasonMissingURL  = "missing_url"
	ReasonInvalidURL  = "invalid_url"
	ReasonMissingKey  = "missing_key"
	ReasonNoTokenSent = "missing_access_token"
)

// Error is a classified failure. Kind is one of the Err* sentinels above and
// Err is the underlying cause, which is never exposed to callers of the agent.
type Error struct {
	Kind   error
	Op     string
	Reason string
	Status int
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	} else {
		sb.WriteString("error")
	}
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.Status)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewError(kind error, op, reason string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason, Err: cause}
}

// ErrorInfo is the sanitized descriptor placed in results. It carries the
// kind and reason only, never upstream bodies or raw transport errors.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

var kindCodes = []struct {
	err  error
	code string
}{
	{ErrMissingConfiguration, "missing_configuration"},
	{ErrNotImplemented, "not_implemented"},
	{ErrUpstreamAuth, "upstream_auth_failure"},
	{ErrUpstreamRequest, "upstream_request_failure"},
	{ErrMalformedResponse, "malformed_upstream_response"},
	{ErrEnrichment, "enrichment_failure"},
	{ErrEmptyQuery, "invalid_query"},
	{ErrQueryTooLong, "invalid_query"},
}

// KindCode returns the stable string code for the kind of err.
func KindCode(err error) string {
	for _, k := range kindCodes {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal_error"
}

// InfoFromError converts err to its public descriptor.
func InfoFromError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}

	info := &ErrorInfo{
		Kind:    KindCode(err),
		Reason:  ReasonOf(err),
		Message: "internal error",
	}

	var de *Error
	if errors.As(err, &de) {
		info.Status = de.Status
		if de.Kind != nil {
			info.Message = de.Kind.Error()
		}
	} else {
		for _, k := range kindCodes {
			if errors.Is(err, k.err) {
				info.Message = k.err.Error()
				break
			}
		}
	}

	return info
}

// ReasonOf returns the recorded reason, or derives one from well-known
// transport errors.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	return ClassifyTransport(err)
}

// ClassifyTransport maps context and network errors to a reason.
func ClassifyTransport(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	return ""
}
