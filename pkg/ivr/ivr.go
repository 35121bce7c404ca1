// Package ivr drives a telephone call through the greet, collect, relay and
// respond states using provider webhooks, and places outbound calls that
// enter the same flow.
//
// The package keeps no state between webhook invocations. Everything a state
// needs (including the re-prompt attempt counter) travels in the webhook URL
// or the provider's form payload.
package ivr

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Webhook paths served by the Orchestrator.
const (
	EntryPath   = "/ivr"
	CollectPath = "/ivr/collect"
	StatusPath  = "/ivr/status"
)

// Call status values reported by Twilio status callbacks.
const (
	CallStatusQueued     = "queued"
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in-progress"
	CallStatusCompleted  = "completed"
	CallStatusBusy       = "busy"
	CallStatusFailed     = "failed"
	CallStatusNoAnswer   = "no-answer"
	CallStatusCanceled   = "canceled"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Responder produces the spoken reply for one caller utterance.
type Responder interface {
	Reply(ctx context.Context, message string) (string, error)
}

// CallEvent is a call record update
type CallEvent struct {
	CallID    string
	From      string
	To        string
	Direction string
	Status    string
	Duration  int
}

// CallRecorder persists call records. It never sees conversation content.
type CallRecorder interface {
	RecordCall(ctx context.Context, ev CallEvent) error
	// UpdateCallStatus creates the record when the call is not known yet
	UpdateCallStatus(ctx context.Context, ev CallEvent) error
}

// TwilioCallInfo Twilio call information
type TwilioCallInfo struct {
	CallSid       string
	From          string
	To            string
	CallStatus    string
	Direction     string
	ForwardedFrom string
	CallerName    string
	CallDuration  int
}

// ParseTwilioWebhook parses the common webhook fields
func ParseTwilioWebhook(r *http.Request) *TwilioCallInfo {
	duration, _ := strconv.Atoi(r.FormValue("CallDuration"))
	return &TwilioCallInfo{
		CallSid:       r.FormValue("CallSid"),
		From:          r.FormValue("From"),
		To:            r.FormValue("To"),
		CallStatus:    r.FormValue("CallStatus"),
		Direction:     r.FormValue("Direction"),
		ForwardedFrom: r.FormValue("ForwardedFrom"),
		CallerName:    r.FormValue("CallerName"),
		CallDuration:  duration,
	}
}

// BaseURL returns configured when set, otherwise the externally visible
// origin of r as reported by the proxy headers.
func BaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return fmt.Sprintf("%s://%s", scheme, host)
}

// webhookURL joins base and path, carrying the attempt counter when positive
func webhookURL(base, path string, attempt int) string {
	u := strings.TrimRight(base, "/") + path
	if attempt > 0 {
		u += "?attempt=" + strconv.Itoa(attempt)
	}
	return u
}

// attemptFrom reads the re-prompt counter; the first invocation is attempt 1
func attemptFrom(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("attempt"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
