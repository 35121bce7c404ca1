package llm

import (
	"errors"
	"fmt"
)

// ErrMessageRequired is returned by the relay for an empty user message.
var ErrMessageRequired = errors.New("llm: message content is required")

// UpstreamKind classifies an upstream failure. It is only ever logged.
type UpstreamKind string

const (
	UpstreamTransport UpstreamKind = "transport"
	UpstreamNoContent UpstreamKind = "no_content"
)

// UpstreamError is returned when the generative-text provider cannot produce a reply
type UpstreamError struct {
	Kind     UpstreamKind
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("llm: %s upstream error (%s)", e.Provider, e.Kind)
	}
	return fmt.Sprintf("llm: %s upstream error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func transportError(provider string, err error) *UpstreamError {
	return &UpstreamError{Kind: UpstreamTransport, Provider: provider, Err: err}
}

func noContentError(provider string, err error) *UpstreamError {
	return &UpstreamError{Kind: UpstreamNoContent, Provider: provider, Err: err}
}

// IsUpstream reports whether err came from the provider, and of which kind
func IsUpstream(err error) (UpstreamKind, bool) {
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		return "", false
	}
	return upErr.Kind, true
}
