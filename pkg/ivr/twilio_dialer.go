package ivr

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LingByte/LingIVR/pkg/config"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioDialer places calls through the Twilio REST API
type TwilioDialer struct {
	client *twilio.RestClient
}

// NewTwilioDialer creates a dialer authenticated with the account credentials
func NewTwilioDialer(cfg config.TwilioConfig) (*TwilioDialer, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("ivr: twilio account SID and auth token are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)
	return &TwilioDialer{client: client}, nil
}

// Dial creates the call. The Twilio SDK call is not context aware, so ctx is
// only checked before the request; the client timeout bounds the request itself.
func (d *TwilioDialer) Dial(ctx context.Context, req DialRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &api.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetUrl(req.URL)
	params.SetMethod(http.MethodPost)
	if req.StatusCallback != "" {
		params.SetStatusCallback(req.StatusCallback)
		params.SetStatusCallbackMethod(http.MethodPost)
		params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	}
	if req.RingTimeout > 0 {
		params.SetTimeout(req.RingTimeout)
	}

	resp, err := d.client.Api.CreateCall(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil || *resp.Sid == "" {
		return "", errors.New("twilio returned a call without sid")
	}
	return *resp.Sid, nil
}
