package ivr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LingByte/LingIVR/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrDestinationRequired is returned for a missing toNumber
	ErrDestinationRequired = errors.New(`ivr: the "toNumber" field is required`)
	// ErrWebhookURLRequired is returned when no public base URL is configured for outbound calls
	ErrWebhookURLRequired = errors.New("ivr: a public webhook base URL is required to place calls")
)

// DialRequest describes an outbound call for the telephony provider
type DialRequest struct {
	To             string
	From           string
	URL            string // first webhook of the call
	StatusCallback string
	RingTimeout    int // seconds
}

// Dialer places calls with the telephony provider and returns the provider call id
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (string, error)
}

// DialError wraps a provider failure. Its detail is logged, never returned to API clients.
type DialError struct {
	To  string
	Err error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("ivr: failed to place call to %s: %v", e.To, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// CallInitiator places outbound calls whose first webhook is the Entry state
type CallInitiator struct {
	dialer      Dialer
	recorder    CallRecorder
	from        string
	baseURL     string
	ringTimeout int
}

// NewCallInitiator creates an initiator calling from the fixed origin number
func NewCallInitiator(dialer Dialer, from, baseURL string, ringTimeout int) (*CallInitiator, error) {
	if dialer == nil {
		return nil, errors.New("ivr: dialer must not be nil")
	}
	return &CallInitiator{
		dialer:      dialer,
		from:        strings.TrimSpace(from),
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		ringTimeout: ringTimeout,
	}, nil
}

// SetRecorder enables outbound call records
func (c *CallInitiator) SetRecorder(recorder CallRecorder) {
	c.recorder = recorder
}

// Initiate asks the provider to call toNumber and returns the provider call id
func (c *CallInitiator) Initiate(ctx context.Context, toNumber string) (string, error) {
	toNumber = strings.TrimSpace(toNumber)
	if toNumber == "" {
		return "", ErrDestinationRequired
	}
	if c.baseURL == "" {
		return "", ErrWebhookURLRequired
	}
	if c.from == "" {
		return "", errors.New("ivr: origin phone number is not configured")
	}

	req := DialRequest{
		To:             toNumber,
		From:           c.from,
		URL:            webhookURL(c.baseURL, EntryPath, 0),
		StatusCallback: webhookURL(c.baseURL, StatusPath, 0),
		RingTimeout:    c.ringTimeout,
	}

	start := time.Now()
	callID, err := c.dialer.Dial(ctx, req)
	if err != nil {
		logger.Error("Error making call",
			zap.String("to", toNumber),
			zap.String("from", c.from),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", &DialError{To: toNumber, Err: err}
	}

	logger.Info("Outbound call initiated",
		zap.String("callSid", callID),
		zap.String("to", toNumber),
		zap.String("from", c.from))

	if c.recorder != nil {
		ev := CallEvent{
			CallID:    callID,
			From:      c.from,
			To:        toNumber,
			Direction: DirectionOutbound,
			Status:    CallStatusQueued,
		}
		if err := c.recorder.RecordCall(ctx, ev); err != nil {
			logger.Error("Failed to record outbound call",
				zap.String("callSid", callID),
				zap.Error(err))
		}
	}
	return callID, nil
}
