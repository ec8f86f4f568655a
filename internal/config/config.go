package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type LLMProvider string

const (
	LLMProviderOpenAI   LLMProvider = "openai"
	LLMProviderGroq     LLMProvider = "groq"
	LLMProviderScripted LLMProvider = "scripted"
)

type SpeechProvider string

const (
	SpeechProviderDeepgram SpeechProvider = "deepgram"
	SpeechProviderNone     SpeechProvider = "none"
)

type TelemetryExporter string

const (
	TelemetryStdout TelemetryExporter = "stdout"
	TelemetryNone   TelemetryExporter = "none"
)

type Config struct {
	Addr string

	LLMProvider  LLMProvider
	OpenAIAPIKey string
	OpenAIModel  string
	GroqAPIKey   string
	GroqModel    string

	SpeechProvider SpeechProvider
	DeepgramAPIKey string

	ProviderTimeout time.Duration
	VoiceDefault    bool
	AllowedOrigins  []string

	Telemetry TelemetryExporter
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func getListEnv(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Load reads all env vars and builds the config. Every problem found is
// returned together.
func Load() (*Config, error) {
	var errs []error

	providerTimeout, err := getDurationEnv("EMA_TUTOR_PROVIDER_TIMEOUT", 20*time.Second)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Addr: getEnv("EMA_TUTOR_ADDR", ":3001"),

		LLMProvider:  LLMProvider(strings.ToLower(getEnv("EMA_TUTOR_LLM_PROVIDER", string(LLMProviderScripted)))),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("EMA_TUTOR_OPENAI_MODEL", "gpt-4o-mini"),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GroqModel:    getEnv("EMA_TUTOR_GROQ_MODEL", "llama-3.1-8b-instant"),

		SpeechProvider: SpeechProvider(strings.ToLower(getEnv("EMA_TUTOR_SPEECH_PROVIDER", string(SpeechProviderDeepgram)))),
		DeepgramAPIKey: getEnv("DEEPGRAM_API_KEY", ""),

		ProviderTimeout: providerTimeout,
		VoiceDefault:    getBoolEnv("EMA_TUTOR_VOICE_DEFAULT", true),
		AllowedOrigins:  getListEnv("EMA_TUTOR_ALLOWED_ORIGINS"),

		Telemetry: TelemetryExporter(strings.ToLower(getEnv("EMA_TUTOR_TELEMETRY", string(TelemetryNone)))),
	}

	switch cfg.LLMProvider {
	case LLMProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY must be set for the openai provider"))
		}
	case LLMProviderGroq:
		if cfg.GroqAPIKey == "" {
			errs = append(errs, errors.New("GROQ_API_KEY must be set for the groq provider"))
		}
	case LLMProviderScripted:
	default:
		errs = append(errs, fmt.Errorf("unsupported EMA_TUTOR_LLM_PROVIDER %q", cfg.LLMProvider))
	}

	switch cfg.SpeechProvider {
	case SpeechProviderDeepgram:
		if cfg.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY must be set for the deepgram provider, or set EMA_TUTOR_SPEECH_PROVIDER=none"))
		}
	case SpeechProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unsupported EMA_TUTOR_SPEECH_PROVIDER %q", cfg.SpeechProvider))
	}

	switch cfg.Telemetry {
	case TelemetryStdout, TelemetryNone:
	default:
		errs = append(errs, fmt.Errorf("unsupported EMA_TUTOR_TELEMETRY %q", cfg.Telemetry))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}
