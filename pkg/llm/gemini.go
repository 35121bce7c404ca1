package llm

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/carlmjohnson/requests"
	"github.com/sirupsen/logrus"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiProvider talks to the generateContent endpoint of the Generative Language API
type GeminiProvider struct {
	opts Options
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(opts Options) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("llm: gemini API key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGeminiBaseURL
	}
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash-latest"
	}
	opts.applyDefaults(10 * time.Second)
	return &GeminiProvider{opts: opts}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete sends prompt as a single user turn. The persona, when set, travels
// as the system instruction.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := sonic.Marshal(p.buildRequest(prompt))
	if err != nil {
		return "", transportError(p.Name(), err)
	}

	var body, errBody bytes.Buffer
	err = requests.
		URL(p.opts.BaseURL).
		Pathf("/v1beta/models/%s:generateContent", p.opts.Model).
		Header("x-goog-api-key", p.opts.APIKey).
		Client(p.opts.HTTPClient).
		Method(http.MethodPost).
		ContentType("application/json").
		BodyBytes(payload).
		AddValidator(requests.ValidatorHandler(requests.DefaultValidator, requests.ToBytesBuffer(&errBody))).
		ToBytesBuffer(&body).
		Fetch(ctx)
	if err != nil {
		p.opts.Logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"model":    p.opts.Model,
			"response": errBody.String(),
		}).WithError(err).Error("Gemini request failed")
		return "", transportError(p.Name(), err)
	}

	reply, err := ExtractReply(body.Bytes())
	if err != nil {
		p.opts.Logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"response": body.String(),
		}).WithError(err).Error("Unexpected response structure from Gemini")
		return "", noContentError(p.Name(), err)
	}

	p.opts.Logger.WithFields(logrus.Fields{
		"provider": p.Name(),
		"chars":    len(reply),
	}).Debug("Gemini completion received")
	return reply, nil
}

func (p *GeminiProvider) buildRequest(prompt string) geminiRequest {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	if p.opts.Persona != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.opts.Persona}}}
	}
	if p.opts.Temperature > 0 || p.opts.MaxTokens > 0 {
		req.GenerationConfig = &geminiGenerationConfig{
			Temperature:     p.opts.Temperature,
			MaxOutputTokens: p.opts.MaxTokens,
		}
	}
	return req
}
