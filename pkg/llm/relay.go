package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTurnTimeout = 8 * time.Second

// Relay turns one user message into one reply. It is shared by the JSON
// chatbot endpoint and the voice call flow; every call is an independent turn.
type Relay struct {
	provider Provider
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewRelay creates a relay. A non-positive timeout falls back to 8s, which
// keeps a stalled backend inside the telephony webhook deadline.
func NewRelay(provider Provider, timeout time.Duration, logger *logrus.Logger) (*Relay, error) {
	if provider == nil {
		return nil, errors.New("llm: provider must not be nil")
	}
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Relay{provider: provider, timeout: timeout, logger: logger}, nil
}

// ProviderName returns the configured backend name
func (r *Relay) ProviderName() string {
	return r.provider.Name()
}

// Reply validates message and returns the backend's reply text. Failures are
// ErrMessageRequired or *UpstreamError; the reply is never empty on success.
func (r *Relay) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrMessageRequired
	}

	turnID := fmt.Sprintf("turn-%s", uuid.New().String())
	log := r.logger.WithFields(logrus.Fields{
		"turnID":   turnID,
		"provider": r.provider.Name(),
	})

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.provider.Complete(ctx, message)
	if err != nil {
		if _, ok := IsUpstream(err); !ok {
			err = transportError(r.provider.Name(), err)
		}
		kind, _ := IsUpstream(err)
		log.WithFields(logrus.Fields{
			"kind":    kind,
			"elapsed": time.Since(start).String(),
		}).WithError(err).Error("Backend unavailable")
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Error("Backend returned empty reply")
		return "", noContentError(r.provider.Name(), errNoCandidates)
	}

	log.WithFields(logrus.Fields{
		"elapsed": time.Since(start).String(),
		"chars":   len(reply),
	}).Info("Relay turn completed")
	return reply, nil
}
