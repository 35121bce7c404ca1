package ivr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDialer struct {
	sid  string
	err  error
	reqs []DialRequest
}

func (d *stubDialer) Dial(ctx context.Context, req DialRequest) (string, error) {
	d.reqs = append(d.reqs, req)
	return d.sid, d.err
}

func TestInitiateCall(t *testing.T) {
	dialer := &stubDialer{sid: "CA100"}
	rec := &memoryRecorder{}
	c, err := NewCallInitiator(dialer, "+15550000", "https://ivr.example.com/", 30)
	require.NoError(t, err)
	c.SetRecorder(rec)

	sid, err := c.Initiate(context.Background(), " +15551234 ")
	require.NoError(t, err)
	assert.Equal(t, "CA100", sid)

	require.Len(t, dialer.reqs, 1)
	assert.Equal(t, DialRequest{
		To:             "+15551234",
		From:           "+15550000",
		URL:            "https://ivr.example.com/ivr",
		StatusCallback: "https://ivr.example.com/ivr/status",
		RingTimeout:    30,
	}, dialer.reqs[0])

	require.Len(t, rec.recorded, 1)
	assert.Equal(t, CallEvent{
		CallID:    "CA100",
		From:      "+15550000",
		To:        "+15551234",
		Direction: DirectionOutbound,
		Status:    CallStatusQueued,
	}, rec.recorded[0])
}

func TestInitiateRequiresDestination(t *testing.T) {
	dialer := &stubDialer{sid: "CA100"}
	c, err := NewCallInitiator(dialer, "+15550000", "https://ivr.example.com", 0)
	require.NoError(t, err)

	_, err = c.Initiate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrDestinationRequired)
	assert.Empty(t, dialer.reqs)
}

func TestInitiateRequiresWebhookURL(t *testing.T) {
	dialer := &stubDialer{sid: "CA100"}
	c, err := NewCallInitiator(dialer, "+15550000", "", 0)
	require.NoError(t, err)

	_, err = c.Initiate(context.Background(), "+15551234")
	assert.ErrorIs(t, err, ErrWebhookURLRequired)
	assert.Empty(t, dialer.reqs)
}

func TestInitiateDialFailure(t *testing.T) {
	cause := errors.New("21211 invalid To number")
	dialer := &stubDialer{err: cause}
	rec := &memoryRecorder{}
	c, err := NewCallInitiator(dialer, "+15550000", "https://ivr.example.com", 0)
	require.NoError(t, err)
	c.SetRecorder(rec)

	_, err = c.Initiate(context.Background(), "+1")
	var dialErr *DialError
	require.ErrorAs(t, err, &dialErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "+1", dialErr.To)
	assert.Empty(t, rec.recorded)
}

func TestInitiateIgnoresRecorderFailure(t *testing.T) {
	dialer := &stubDialer{sid: "CA7"}
	c, err := NewCallInitiator(dialer, "+15550000", "https://ivr.example.com", 0)
	require.NoError(t, err)
	c.SetRecorder(&memoryRecorder{err: errors.New("disk full")})

	sid, err := c.Initiate(context.Background(), "+15551234")
	require.NoError(t, err)
	assert.Equal(t, "CA7", sid)
}

func TestNewCallInitiatorRequiresDialer(t *testing.T) {
	_, err := NewCallInitiator(nil, "+15550000", "https://ivr.example.com", 0)
	assert.Error(t, err)
}
