package ivr

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/LingByte/LingIVR/pkg/logger"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// maxSayChars stays below Twilio's 4096 character limit for a single Say verb
const maxSayChars = 4000

// say builds a Say verb with the configured voice
func (o *Orchestrator) say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{
		Message:  clampSpeech(text),
		Voice:    o.cfg.Voice,
		Language: o.cfg.Language,
	}
}

// gather builds the Entry state's Gather: speech or a single digit, posted to Collect
func (o *Orchestrator) gather(action string, prompt twiml.Element) *twiml.VoiceGather {
	g := &twiml.VoiceGather{
		Input:         "speech dtmf",
		NumDigits:     "1",
		Action:        action,
		Method:        http.MethodPost,
		Language:      o.cfg.Language,
		InnerElements: []twiml.Element{prompt},
	}
	if o.cfg.GatherTimeout > 0 {
		g.Timeout = strconv.Itoa(o.cfg.GatherTimeout)
	}
	return g
}

func redirect(url string) *twiml.VoiceRedirect {
	return &twiml.VoiceRedirect{Url: url, Method: http.MethodPost}
}

// sendTwiML renders verbs as a voice script. A rendering failure still
// answers the leg with a spoken apology and a hangup.
func (o *Orchestrator) sendTwiML(w http.ResponseWriter, verbs ...twiml.Element) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		logger.Error("Failed to render TwiML response", zap.Error(err))
		doc = fallbackTwiML(o.cfg.ApologyMessage)
	}

	logger.Debug("Sending TwiML response", zap.String("twiml", doc))

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// fallbackTwiML is hand-built so that it cannot fail
func fallbackTwiML(message string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Response><Say>`)
	_ = xml.EscapeText(&b, []byte(message))
	b.WriteString(`</Say><Hangup/></Response>`)
	return b.String()
}

func clampSpeech(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxSayChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSayChars])
}
