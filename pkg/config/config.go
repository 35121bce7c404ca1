package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/LingByte/LingIVR/pkg/logger"
	"github.com/LingByte/LingIVR/pkg/utils"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config main configuration structure
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Database DatabaseConfig   `mapstructure:"database"`
	Log      logger.LogConfig `mapstructure:"log"`
	LLM      LLMConfig        `mapstructure:"llm"`
	Twilio   TwilioConfig     `mapstructure:"twilio"`
	IVR      IVRConfig        `mapstructure:"ivr"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Name           string   `env:"SERVER_NAME"`
	Addr           string   `env:"ADDR"`
	Mode           string   `env:"MODE"`
	WebhookURL     string   `env:"TWILIO_WEBHOOK_URL"` // externally reachable base URL
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER"` // sqlite, sqlite3, mysql, postgres, none
	DSN    string `env:"DSN"`
}

// LLMConfig generative-text backend configuration
type LLMConfig struct {
	Provider    string        `env:"LLM_PROVIDER"` // gemini, openai
	APIKey      string        `env:"LLM_API_KEY"`
	BaseURL     string        `env:"LLM_BASE_URL"`
	Model       string        `env:"LLM_MODEL"`
	Temperature float32       `env:"LLM_TEMPERATURE"`
	MaxTokens   int           `env:"LLM_MAX_TOKENS"`
	Persona     string        `env:"LLM_PERSONA"`
	Timeout     time.Duration `env:"LLM_TIMEOUT"`
}

// TwilioConfig telephony provider configuration
type TwilioConfig struct {
	AccountSID        string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken         string        `env:"TWILIO_AUTH_TOKEN"`
	PhoneNumber       string        `env:"TWILIO_PHONE_NUMBER"`
	ValidateSignature bool          `env:"TWILIO_VALIDATE_SIGNATURE"`
	Timeout           time.Duration `env:"TWILIO_TIMEOUT"`
	RingTimeout       int           `env:"TWILIO_RING_TIMEOUT"` // seconds
}

// IVRConfig voice prompts and call-flow limits
type IVRConfig struct {
	WelcomeMessage string `env:"IVR_WELCOME_MESSAGE"`
	ClosingMessage string `env:"IVR_CLOSING_MESSAGE"`
	ApologyMessage string `env:"IVR_APOLOGY_MESSAGE"`
	NoInputMessage string `env:"IVR_NO_INPUT_MESSAGE"`
	Voice          string `env:"IVR_VOICE"`
	Language       string `env:"IVR_LANGUAGE"`
	GatherTimeout  int    `env:"IVR_GATHER_TIMEOUT"` // seconds
	MaxAttempts    int    `env:"IVR_MAX_ATTEMPTS"`   // 0 means unbounded
}

const defaultPersona = "You are a warm, supportive companion speaking to someone over the phone. " +
	"Answer in two or three short sentences of plain spoken English without lists, markdown or emoji."

// Load reads the configuration from the environment. It never fails on missing
// credentials; call Validate before serving.
func Load() (*Config, error) {
	// 1. Load .env file based on environment (missing files are not an error)
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		log.Printf("Note: .env file not found or failed to load: %v (using process environment)", err)
	}

	mode := getStringOrDefault("MODE", "development")
	provider := strings.ToLower(getStringOrDefault("LLM_PROVIDER", ProviderGemini))

	cfg := &Config{
		Server: ServerConfig{
			Name:           getStringOrDefault("SERVER_NAME", "LingIVR"),
			Addr:           listenAddr(),
			Mode:           mode,
			WebhookURL:     strings.TrimRight(getStringOrDefault("TWILIO_WEBHOOK_URL", ""), "/"),
			AllowedOrigins: splitList(getStringOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getStringOrDefault("DB_DRIVER", "sqlite")),
			DSN:    getStringOrDefault("DSN", "./lingivr.db"),
		},
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		LLM: LLMConfig{
			Provider:    provider,
			APIKey:      llmAPIKey(provider),
			BaseURL:     strings.TrimRight(getStringOrDefault("LLM_BASE_URL", defaultBaseURL(provider)), "/"),
			Model:       getStringOrDefault("LLM_MODEL", defaultModel(provider)),
			Temperature: float32(getFloatOrDefault("LLM_TEMPERATURE", 0.7)),
			MaxTokens:   getIntOrDefault("LLM_MAX_TOKENS", 256),
			Persona:     getStringOrDefault("LLM_PERSONA", defaultPersona),
			Timeout:     getDurationOrDefault("LLM_TIMEOUT", 8*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID:        getStringOrDefault("TWILIO_ACCOUNT_SID", ""),
			AuthToken:         getStringOrDefault("TWILIO_AUTH_TOKEN", ""),
			PhoneNumber:       getStringOrDefault("TWILIO_PHONE_NUMBER", ""),
			ValidateSignature: getBoolOrDefault("TWILIO_VALIDATE_SIGNATURE", false),
			Timeout:           getDurationOrDefault("TWILIO_TIMEOUT", 10*time.Second),
			RingTimeout:       getIntOrDefault("TWILIO_RING_TIMEOUT", 30),
		},
		IVR: IVRConfig{
			WelcomeMessage: getStringOrDefault("IVR_WELCOME_MESSAGE", "Welcome to our chatbot. Please press 1 or say something to start chatting."),
			ClosingMessage: getStringOrDefault("IVR_CLOSING_MESSAGE", "Thank you for using our service. Goodbye!"),
			ApologyMessage: getStringOrDefault("IVR_APOLOGY_MESSAGE", "There was an error. Please try again later."),
			NoInputMessage: getStringOrDefault("IVR_NO_INPUT_MESSAGE", "We did not receive any input. Goodbye!"),
			Voice:          getStringOrDefault("IVR_VOICE", "alice"),
			Language:       getStringOrDefault("IVR_LANGUAGE", "en-US"),
			GatherTimeout:  getIntOrDefault("IVR_GATHER_TIMEOUT", 5),
			MaxAttempts:    getIntOrDefault("IVR_MAX_ATTEMPTS", 0),
		},
	}
	return cfg, nil
}

// Validate reports the first setting that prevents the server from starting
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("generative-text API key is required (LLM_API_KEY or " + providerKeyEnv(c.LLM.Provider) + ")")
	}
	if c.LLM.Provider != ProviderGemini && c.LLM.Provider != ProviderOpenAI {
		return errors.New("unsupported LLM provider: " + c.LLM.Provider)
	}
	if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
		return errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}
	if c.IVR.MaxAttempts < 0 {
		return errors.New("IVR_MAX_ATTEMPTS must not be negative")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}

// listenAddr prefers ADDR, then PORT, then :8000
func listenAddr() string {
	if addr := utils.GetEnv("ADDR"); addr != "" {
		return addr
	}
	if port := utils.GetEnv("PORT"); port != "" {
		return ":" + strings.TrimPrefix(port, ":")
	}
	return ":8000"
}

func llmAPIKey(provider string) string {
	if key := utils.GetEnv("LLM_API_KEY"); key != "" {
		return key
	}
	return utils.GetEnv(providerKeyEnv(provider))
}

func providerKeyEnv(provider string) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func defaultBaseURL(provider string) string {
	if provider == ProviderOpenAI {
		return "https://api.openai.com/v1"
	}
	return "https://generativelanguage.googleapis.com"
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-1.5-flash-latest"
}

// getStringOrDefault gets environment variable value, returns default if empty
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault gets boolean environment variable value, returns default if empty
func getBoolOrDefault(key string, defaultValue bool) bool {
	if utils.GetEnv(key) == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault gets integer environment variable value, returns default if empty
func getIntOrDefault(key string, defaultValue int) int {
	if utils.GetEnv(key) == "" {
		return defaultValue
	}
	return int(utils.GetIntEnv(key))
}

// getFloatOrDefault gets float environment variable value, returns default if empty or malformed
func getFloatOrDefault(key string, defaultValue float64) float64 {
	if utils.GetEnv(key) == "" {
		return defaultValue
	}
	if f, err := utils.GetFloatEnv(key); err == nil {
		return f
	}
	return defaultValue
}

// getDurationOrDefault parses a duration, falling back on empty or non-positive values
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	d := utils.GetDurationEnv(key)
	if d <= 0 {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
