package core

import (
	"fmt"
	"strings"
)

// ResolutionError reports a canonical field with no matching column.
type ResolutionError struct {
	Field   string
	Aliases []string
	Columns []string
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "column resolution failed"
	}
	return fmt.Sprintf("no column matches field %q (aliases: %s); available columns: [%s]",
		e.Field, strings.Join(e.Aliases, ", "), strings.Join(e.Columns, " | "))
}

// ParseError reports a provider response that could not be decoded into a patch.
type ParseError struct {
	Err error
	Raw string
}

func (e *ParseError) Error() string {
	if e == nil || e.Err == nil {
		return "parse provider response"
	}
	return "parse provider response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Upstream error codes preserved from the provider error classification.
const (
	UpstreamTimeout     = "AILINK_PROVIDER_TIMEOUT"
	UpstreamAuth        = "AILINK_PROVIDER_AUTH"
	UpstreamRateLimit   = "AILINK_PROVIDER_RATE_LIMIT"
	UpstreamUnavailable = "AILINK_PROVIDER_UNAVAILABLE"
	UpstreamBadRequest  = "AILINK_PROVIDER_BAD_REQUEST"
	UpstreamError       = "AILINK_PROVIDER_ERROR"
)

// UpstreamCallError reports a failed provider call. It is recoverable.
type UpstreamCallError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *UpstreamCallError) Error() string {
	if e == nil {
		return "provider call failed"
	}
	msg := e.Message
	if msg == "" {
		msg = "provider call failed"
	}
	if e.Details != "" {
		return fmt.Sprintf("%s [%s]: %s", msg, e.Code, e.Details)
	}
	return fmt.Sprintf("%s [%s]", msg, e.Code)
}

func (e *UpstreamCallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// QuotaExceeded reports whether the provider rejected the call for quota or rate reasons.
func (e *UpstreamCallError) QuotaExceeded() bool {
	return e != nil && e.Code == UpstreamRateLimit
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Column string
	Value  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record with %s = %q", e.Column, e.Value)
}
