package ivr

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/LingByte/LingIVR/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponder struct {
	reply    string
	err      error
	calls    int
	messages []string
}

func (s *stubResponder) Reply(ctx context.Context, message string) (string, error) {
	s.calls++
	s.messages = append(s.messages, message)
	return s.reply, s.err
}

type memoryRecorder struct {
	recorded []CallEvent
	updated  []CallEvent
	err      error
}

func (m *memoryRecorder) RecordCall(ctx context.Context, ev CallEvent) error {
	m.recorded = append(m.recorded, ev)
	return m.err
}

func (m *memoryRecorder) UpdateCallStatus(ctx context.Context, ev CallEvent) error {
	m.updated = append(m.updated, ev)
	return m.err
}

// verb is a decoded TwiML element
type verb struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []verb     `xml:",any"`
}

func (v verb) attr(name string) string {
	for _, a := range v.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseTwiML(t *testing.T, body string) []verb {
	t.Helper()
	var doc struct {
		XMLName xml.Name `xml:"Response"`
		Verbs   []verb   `xml:",any"`
	}
	require.NoError(t, xml.Unmarshal([]byte(body), &doc), body)
	return doc.Verbs
}

func verbNames(verbs []verb) []string {
	names := make([]string, 0, len(verbs))
	for _, v := range verbs {
		names = append(names, v.XMLName.Local)
	}
	return names
}

func testIVRConfig() config.IVRConfig {
	return config.IVRConfig{
		WelcomeMessage: "Welcome to our chatbot. Please press 1 or say something to start chatting.",
		ClosingMessage: "Thank you for using our service. Goodbye!",
		ApologyMessage: "There was an error. Please try again later.",
		NoInputMessage: "We did not receive any input. Goodbye!",
		Voice:          "alice",
		Language:       "en-US",
		GatherTimeout:  5,
	}
}

func newTestOrchestrator(t *testing.T, responder Responder, cfg config.IVRConfig) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(responder, "https://ivr.example.com/", cfg)
	require.NoError(t, err)
	return o
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleEntryGathersInput(t *testing.T) {
	o := newTestOrchestrator(t, &stubResponder{}, testIVRConfig())

	w := httptest.NewRecorder()
	o.HandleEntry(w, postForm(EntryPath, url.Values{"CallSid": {"CA1"}, "From": {"+15550001"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")

	verbs := parseTwiML(t, w.Body.String())
	require.Equal(t, []string{"Gather", "Redirect"}, verbNames(verbs))

	gather := verbs[0]
	assert.Equal(t, "speech dtmf", gather.attr("input"))
	assert.Equal(t, "1", gather.attr("numDigits"))
	assert.Equal(t, "POST", gather.attr("method"))
	assert.Equal(t, "5", gather.attr("timeout"))
	assert.Equal(t, "https://ivr.example.com/ivr/collect?attempt=1", gather.attr("action"))

	require.Len(t, gather.Children, 1)
	say := gather.Children[0]
	assert.Equal(t, "Say", say.XMLName.Local)
	assert.Equal(t, "alice", say.attr("voice"))
	assert.Equal(t, testIVRConfig().WelcomeMessage, say.Text)

	assert.Equal(t, "https://ivr.example.com/ivr?attempt=2", strings.TrimSpace(verbs[1].Text))
}

func TestHandleEntryCarriesAttempt(t *testing.T) {
	o := newTestOrchestrator(t, &stubResponder{}, testIVRConfig())

	w := httptest.NewRecorder()
	o.HandleEntry(w, postForm(EntryPath+"?attempt=3", url.Values{"CallSid": {"CA1"}}))

	verbs := parseTwiML(t, w.Body.String())
	require.Equal(t, []string{"Gather", "Redirect"}, verbNames(verbs))
	assert.Equal(t, "https://ivr.example.com/ivr/collect?attempt=3", verbs[0].attr("action"))
	assert.Equal(t, "https://ivr.example.com/ivr?attempt=4", strings.TrimSpace(verbs[1].Text))
}

func TestHandleEntryUnboundedByDefault(t *testing.T) {
	o := newTestOrchestrator(t, &stubResponder{}, testIVRConfig())

	w := httptest.NewRecorder()
	o.HandleEntry(w, postForm(EntryPath+"?attempt=500", nil))

	verbs := parseTwiML(t, w.Body.String())
	assert.Equal(t, []string{"Gather", "Redirect"}, verbNames(verbs))
}

func TestHandleEntryHangsUpAfterMaxAttempts(t *testing.T) {
	cfg := testIVRConfig()
	cfg.MaxAttempts = 3
	o := newTestOrchestrator(t, &stubResponder{}, cfg)

	w := httptest.NewRecorder()
	o.HandleEntry(w, postForm(EntryPath+"?attempt=3", nil))
	assert.Equal(t, []string{"Gather", "Redirect"}, verbNames(parseTwiML(t, w.Body.String())))

	w = httptest.NewRecorder()
	o.HandleEntry(w, postForm(EntryPath+"?attempt=4", nil))
	verbs := parseTwiML(t, w.Body.String())
	require.Equal(t, []string{"Say", "Hangup"}, verbNames(verbs))
	assert.Equal(t, cfg.NoInputMessage, verbs[0].Text)
}

func TestHandleEntryDerivesBaseURL(t *testing.T) {
	o, err := NewOrchestrator(&stubResponder{}, "", testIVRConfig())
	require.NoError(t, err)

	req := postForm(EntryPath, nil)
	req.Host = "internal:8000"
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "calls.example.org")

	w := httptest.NewRecorder()
	o.HandleEntry(w, req)

	verbs := parseTwiML(t, w.Body.String())
	assert.Equal(t, "https://calls.example.org/ivr/collect?attempt=1", verbs[0].attr("action"))
}

func TestHandleCollectSpeech(t *testing.T) {
	responder := &stubResponder{reply: "Try taking a short walk outside."}
	cfg := testIVRConfig()
	o := newTestOrchestrator(t, responder, cfg)

	w := httptest.NewRecorder()
	o.HandleCollect(w, postForm(CollectPath+"?attempt=1", url.Values{
		"CallSid":      {"CA1"},
		"SpeechResult": {" I feel bored "},
		"Digits":       {"1"},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, responder.calls)
	assert.Equal(t, "I feel bored", responder.messages[0])

	verbs := parseTwiML(t, w.Body.String())
	require.Equal(t, []string{"Say", "Say", "Hangup"}, verbNames(verbs))
	assert.Equal(t, "Try taking a short walk outside.", verbs[0].Text)
	assert.Equal(t, cfg.ClosingMessage, verbs[1].Text)
}

func TestHandleCollectDigits(t *testing.T) {
	responder := &stubResponder{reply: "Hello there."}
	o := newTestOrchestrator(t, responder, testIVRConfig())

	w := httptest.NewRecorder()
	o.HandleCollect(w, postForm(CollectPath, url.Values{"Digits": {"1"}}))

	require.Equal(t, 1, responder.calls)
	assert.Equal(t, "1", responder.messages[0])
	assert.Equal(t, []string{"Say", "Say", "Hangup"}, verbNames(parseTwiML(t, w.Body.String())))
}

func TestHandleCollectEmptyInputRedirects(t *testing.T) {
	responder := &stubResponder{reply: "unused"}
	o := newTestOrchestrator(t, responder, testIVRConfig())

	w := httptest.NewRecorder()
	o.HandleCollect(w, postForm(CollectPath+"?attempt=2", url.Values{"SpeechResult": {"  "}}))

	assert.Equal(t, 0, responder.calls)
	verbs := parseTwiML(t, w.Body.String())
	require.Equal(t, []string{"Redirect"}, verbNames(verbs))
	assert.Equal(t, "https://ivr.example.com/ivr?attempt=3", strings.TrimSpace(verbs[0].Text))
	assert.Equal(t, "POST", verbs[0].attr("method"))
}

func TestHandleCollectRelayFailure(t *testing.T) {
	responder := &stubResponder{err: errors.New("upstream down")}
	cfg := testIVRConfig()
	o := newTestOrchestrator(t, responder, cfg)

	w := httptest.NewRecorder()
	o.HandleCollect(w, postForm(CollectPath, url.Values{"SpeechResult": {"hello"}}))

	require.Equal(t, http.StatusOK, w.Code)
	verbs := parseTwiML(t, w.Body.String())
	require.Equal(t, []string{"Say", "Hangup"}, verbNames(verbs))
	assert.Equal(t, cfg.ApologyMessage, verbs[0].Text)
	assert.NotContains(t, w.Body.String(), "upstream down")
}

func TestHandleStatusRecordsCall(t *testing.T) {
	o := newTestOrchestrator(t, &stubResponder{}, testIVRConfig())
	rec := &memoryRecorder{}
	o.SetRecorder(rec)

	w := httptest.NewRecorder()
	o.HandleStatus(w, postForm(StatusPath, url.Values{
		"CallSid":      {"CA9"},
		"CallStatus":   {"completed"},
		"Direction":    {"outbound-api"},
		"From":         {"+15550001"},
		"To":           {"+15550002"},
		"CallDuration": {"42"},
	}))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, rec.updated, 1)
	assert.Equal(t, CallEvent{
		CallID:    "CA9",
		From:      "+15550001",
		To:        "+15550002",
		Direction: DirectionOutbound,
		Status:    CallStatusCompleted,
		Duration:  42,
	}, rec.updated[0])
}

func TestHandleStatusIgnoresRecorderErrors(t *testing.T) {
	o := newTestOrchestrator(t, &stubResponder{}, testIVRConfig())
	o.SetRecorder(&memoryRecorder{err: errors.New("db locked")})

	w := httptest.NewRecorder()
	o.HandleStatus(w, postForm(StatusPath, url.Values{"CallSid": {"CA9"}, "CallStatus": {"ringing"}}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	o.HandleStatus(w, postForm(StatusPath, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNewOrchestratorValidation(t *testing.T) {
	_, err := NewOrchestrator(nil, "", testIVRConfig())
	assert.Error(t, err)

	cfg := testIVRConfig()
	cfg.MaxAttempts = -1
	_, err = NewOrchestrator(&stubResponder{}, "", cfg)
	assert.Error(t, err)
}

func TestClampSpeech(t *testing.T) {
	long := strings.Repeat("é", maxSayChars+10)
	assert.Equal(t, maxSayChars, len([]rune(clampSpeech(long))))
	assert.Equal(t, "hi", clampSpeech("  hi "))
}

func TestFallbackTwiMLEscapes(t *testing.T) {
	doc := fallbackTwiML("a < b & c")
	verbs := parseTwiML(t, doc)
	require.Equal(t, []string{"Say", "Hangup"}, verbNames(verbs))
	assert.Equal(t, "a < b & c", verbs[0].Text)
}

func TestNormalizeDirection(t *testing.T) {
	assert.Equal(t, DirectionOutbound, normalizeDirection("outbound-api"))
	assert.Equal(t, DirectionOutbound, normalizeDirection("outbound-dial"))
	assert.Equal(t, DirectionInbound, normalizeDirection("inbound"))
	assert.Equal(t, "", normalizeDirection(""))
}
