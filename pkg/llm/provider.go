package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/LingByte/LingIVR/pkg/config"
	"github.com/sirupsen/logrus"
)

// Provider submits a prompt to a generative-text backend and returns the
// normalized reply. Implementations return *UpstreamError on failure.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options shared by every provider implementation
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Persona     string
	HTTPClient  *http.Client
	Logger      *logrus.Logger
}

func (o *Options) applyDefaults(timeout time.Duration) {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: timeout}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// NewProvider builds the provider selected by cfg.Provider
func NewProvider(cfg config.LLMConfig, logger *logrus.Logger) (Provider, error) {
	opts := Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Persona:     cfg.Persona,
		Logger:      logger,
	}
	// the relay enforces the per-turn deadline; this only bounds a stuck connection
	opts.applyDefaults(cfg.Timeout + 2*time.Second)

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(opts)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(opts)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}
