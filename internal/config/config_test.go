package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EMA_TUTOR_SPEECH_PROVIDER", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":3001" {
		t.Fatalf("expected :3001, got %q", cfg.Addr)
	}
	if cfg.LLMProvider != LLMProviderScripted {
		t.Fatalf("expected scripted provider, got %q", cfg.LLMProvider)
	}
	if cfg.ProviderTimeout != 20*time.Second {
		t.Fatalf("expected 20s, got %s", cfg.ProviderTimeout)
	}
	if !cfg.VoiceDefault {
		t.Fatalf("expected voice mode on by default")
	}
	if cfg.Telemetry != TelemetryNone {
		t.Fatalf("expected telemetry off, got %q", cfg.Telemetry)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no origin restrictions, got %v", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EMA_TUTOR_ADDR", ":8080")
	t.Setenv("EMA_TUTOR_LLM_PROVIDER", "GROQ")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("DEEPGRAM_API_KEY", "dg_test")
	t.Setenv("EMA_TUTOR_PROVIDER_TIMEOUT", "5s")
	t.Setenv("EMA_TUTOR_VOICE_DEFAULT", "false")
	t.Setenv("EMA_TUTOR_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EMA_TUTOR_TELEMETRY", "stdout")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":8080" || cfg.LLMProvider != LLMProviderGroq || cfg.GroqAPIKey != "gsk_test" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SpeechProvider != SpeechProviderDeepgram || cfg.DeepgramAPIKey != "dg_test" {
		t.Fatalf("unexpected speech config %+v", cfg)
	}
	if cfg.ProviderTimeout != 5*time.Second || cfg.VoiceDefault {
		t.Fatalf("unexpected session config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Telemetry != TelemetryStdout {
		t.Fatalf("expected stdout telemetry, got %q", cfg.Telemetry)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	t.Setenv("EMA_TUTOR_LLM_PROVIDER", "openai")
	t.Setenv("EMA_TUTOR_SPEECH_PROVIDER", "deepgram")
	t.Setenv("EMA_TUTOR_PROVIDER_TIMEOUT", "soon")
	t.Setenv("EMA_TUTOR_TELEMETRY", "jaeger")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected an error")
	}
	for _, fragment := range []string{"OPENAI_API_KEY", "DEEPGRAM_API_KEY", "EMA_TUTOR_PROVIDER_TIMEOUT", "EMA_TUTOR_TELEMETRY"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected error to mention %s, got %v", fragment, err)
		}
	}
}

func TestGetDurationEnvRejectsNonPositive(t *testing.T) {
	t.Setenv("EMA_TUTOR_PROVIDER_TIMEOUT", "0s")

	if _, err := getDurationEnv("EMA_TUTOR_PROVIDER_TIMEOUT", time.Second); err == nil {
		t.Fatalf("expected zero duration to be rejected")
	}
}
