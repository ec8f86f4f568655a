// Command ema-tutor serves tutoring sessions over a WebSocket.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-tutor/core"
	"github.com/koscakluka/ema-tutor/core/llms"
	"github.com/koscakluka/ema-tutor/core/llms/groq"
	"github.com/koscakluka/ema-tutor/core/llms/openai"
	"github.com/koscakluka/ema-tutor/core/llms/scripted"
	"github.com/koscakluka/ema-tutor/core/speech/deepgram"
	"github.com/koscakluka/ema-tutor/core/transport/ws"
	"github.com/koscakluka/ema-tutor/internal/config"
	"github.com/koscakluka/ema-tutor/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("ema-tutor stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry == config.TelemetryStdout {
		shutdownTelemetry, err := telemetry.SetupStdout(ctx, "ema-tutor", os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logger.Warn("failed to flush telemetry", "error", err)
			}
		}()
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithLLM(newGenerator(cfg)),
		orchestration.WithProviderTimeout(cfg.ProviderTimeout),
		orchestration.WithVoiceDefault(cfg.VoiceDefault),
	}
	if cfg.SpeechProvider == config.SpeechProviderDeepgram {
		opts = append(opts, orchestration.WithSpeechProvider(deepgram.NewClient(cfg.DeepgramAPIKey)))
	}
	o := orchestration.NewOrchestrator(opts...)
	defer o.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(o, logger, ws.WithAllowedOrigins(cfg.AllowedOrigins...)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("ema-tutor listening", "addr", cfg.Addr,
			"llm_provider", string(cfg.LLMProvider),
			"speech_provider", string(cfg.SpeechProvider))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newGenerator(cfg *config.Config) llms.Generator {
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case config.LLMProviderGroq:
		return groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel)
	default:
		return scripted.New()
	}
}
