package ivr

import (
	"net/http"

	"github.com/LingByte/LingIVR/pkg/logger"
	twclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

// SignatureHeader carries Twilio's request signature
const SignatureHeader = "X-Twilio-Signature"

// SignatureValidator rejects webhooks not signed with the account auth token
type SignatureValidator struct {
	validator twclient.RequestValidator
	baseURL   string
}

// NewSignatureValidator validates against baseURL, or the request origin when empty
func NewSignatureValidator(authToken, baseURL string) *SignatureValidator {
	return &SignatureValidator{
		validator: twclient.NewRequestValidator(authToken),
		baseURL:   baseURL,
	}
}

// Wrap guards next with signature validation
func (v *SignatureValidator) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			logger.Warn("Failed to parse webhook form", zap.Error(err))
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		params := make(map[string]string, len(r.PostForm))
		for key, values := range r.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		url := BaseURL(r, v.baseURL) + r.URL.RequestURI()
		if !v.validator.Validate(url, params, r.Header.Get(SignatureHeader)) {
			logger.Warn("Rejected webhook with invalid signature",
				zap.String("url", url),
				zap.String("callSid", params["CallSid"]))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
