package ivr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LingByte/LingIVR/pkg/config"
	"github.com/LingByte/LingIVR/pkg/logger"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// Orchestrator is the webhook state machine for one call leg:
// Entry (greet and gather) -> Collect (relay and respond) -> Terminal (hangup).
type Orchestrator struct {
	responder Responder
	recorder  CallRecorder
	baseURL   string
	cfg       config.IVRConfig
}

// NewOrchestrator creates the call-flow handler. baseURL may be empty, in
// which case webhook URLs are derived from each incoming request.
func NewOrchestrator(responder Responder, baseURL string, cfg config.IVRConfig) (*Orchestrator, error) {
	if responder == nil {
		return nil, errors.New("ivr: responder must not be nil")
	}
	if cfg.MaxAttempts < 0 {
		return nil, errors.New("ivr: max attempts must not be negative")
	}
	return &Orchestrator{
		responder: responder,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cfg:       cfg,
	}, nil
}

// SetRecorder enables call status persistence
func (o *Orchestrator) SetRecorder(recorder CallRecorder) {
	o.recorder = recorder
}

// HandleEntry greets the caller and gathers speech or one digit. When nothing
// is gathered the provider follows the trailing Redirect back here with the
// attempt counter incremented.
func (o *Orchestrator) HandleEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Warn("Failed to parse entry webhook form", zap.Error(err))
	}

	info := ParseTwilioWebhook(r)
	attempt := attemptFrom(r)
	base := BaseURL(r, o.baseURL)

	logger.Info("IVR entry webhook received",
		zap.String("callSid", info.CallSid),
		zap.String("from", info.From),
		zap.String("to", info.To),
		zap.String("direction", info.Direction),
		zap.Int("attempt", attempt))

	if o.cfg.MaxAttempts > 0 && attempt > o.cfg.MaxAttempts {
		logger.Info("No input after maximum attempts, ending call",
			zap.String("callSid", info.CallSid),
			zap.Int("maxAttempts", o.cfg.MaxAttempts))
		o.sendTwiML(w, o.say(o.cfg.NoInputMessage), &twiml.VoiceHangup{})
		return
	}

	o.sendTwiML(w,
		o.gather(webhookURL(base, CollectPath, attempt), o.say(o.cfg.WelcomeMessage)),
		redirect(webhookURL(base, EntryPath, attempt+1)),
	)
}

// HandleCollect relays the gathered input and speaks the reply, or loops
// back to Entry when nothing was understood. Every relay outcome ends the call.
func (o *Orchestrator) HandleCollect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Warn("Failed to parse collect webhook form", zap.Error(err))
	}

	info := ParseTwilioWebhook(r)
	attempt := attemptFrom(r)

	input := strings.TrimSpace(r.FormValue("SpeechResult"))
	source := "speech"
	if input == "" {
		input = strings.TrimSpace(r.FormValue("Digits"))
		source = "dtmf"
	}

	if input == "" {
		logger.Info("Input not understood, re-prompting",
			zap.String("callSid", info.CallSid),
			zap.Int("attempt", attempt))
		o.sendTwiML(w, redirect(webhookURL(BaseURL(r, o.baseURL), EntryPath, attempt+1)))
		return
	}

	logger.Info("User input received",
		zap.String("callSid", info.CallSid),
		zap.String("source", source),
		zap.String("input", input))

	start := time.Now()
	reply, err := o.responder.Reply(r.Context(), input)
	if err != nil {
		logger.Error("Failed to get reply for caller",
			zap.String("callSid", info.CallSid),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		o.sendTwiML(w, o.say(o.cfg.ApologyMessage), &twiml.VoiceHangup{})
		return
	}

	logger.Info("Reply ready for caller",
		zap.String("callSid", info.CallSid),
		zap.Duration("elapsed", time.Since(start)))

	o.sendTwiML(w,
		o.say(reply),
		o.say(o.cfg.ClosingMessage),
		&twiml.VoiceHangup{},
	)
}

// HandleStatus records call status callbacks. It always answers 204.
func (o *Orchestrator) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		logger.Warn("Failed to parse status callback form", zap.Error(err))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	info := ParseTwilioWebhook(r)
	logger.Info("Call status callback received",
		zap.String("callSid", info.CallSid),
		zap.String("callStatus", info.CallStatus),
		zap.Int("duration", info.CallDuration))

	if o.recorder != nil && info.CallSid != "" && info.CallStatus != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		ev := CallEvent{
			CallID:    info.CallSid,
			From:      info.From,
			To:        info.To,
			Direction: normalizeDirection(info.Direction),
			Status:    info.CallStatus,
			Duration:  info.CallDuration,
		}
		if err := o.recorder.UpdateCallStatus(ctx, ev); err != nil {
			logger.Error("Failed to update call status",
				zap.String("callSid", info.CallSid),
				zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// normalizeDirection maps Twilio's outbound-api / outbound-dial to outbound
func normalizeDirection(direction string) string {
	if strings.HasPrefix(direction, DirectionOutbound) {
		return DirectionOutbound
	}
	if direction == "" {
		return ""
	}
	return DirectionInbound
}
