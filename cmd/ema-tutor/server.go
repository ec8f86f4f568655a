package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	orchestration "github.com/koscakluka/ema-tutor/core"
	"github.com/koscakluka/ema-tutor/core/events"
	"github.com/koscakluka/ema-tutor/core/roles"
	"github.com/koscakluka/ema-tutor/core/transport/ws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newHandler(o *orchestration.Orchestrator, logger *slog.Logger, wsOpts ...ws.Option) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(o, wsOpts...))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /v1/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, o.Stats())
	})
	mux.HandleFunc("GET /v1/agents", func(w http.ResponseWriter, r *http.Request) {
		agents, err := listAgents(o.Roles())
		if err != nil {
			logger.Error("failed to list agents", "error", err)
			writeJSON(w, logger, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, logger, http.StatusOK, agents)
	})
	mux.HandleFunc("GET /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := o.Snapshot(r.PathValue("id"))
		if errors.Is(err, orchestration.ErrSessionNotFound) {
			writeJSON(w, logger, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		} else if err != nil {
			logger.Error("failed to snapshot session", "session_id", r.PathValue("id"), "error", err)
			writeJSON(w, logger, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, logger, http.StatusOK, snapshot)
	})
	mux.HandleFunc("GET /v1/protocol/schema", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, events.Schema())
	})

	return otelhttp.NewHandler(mux, "ema-tutor")
}

type agent struct {
	ID roles.ID `json:"id"`
	roles.Info
}

func listAgents(registry *roles.Registry) ([]agent, error) {
	ids := registry.IDs()
	agents := make([]agent, 0, len(ids))
	for _, id := range ids {
		info, err := registry.Info(id)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent{ID: id, Info: info})
	}
	return agents, nil
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}
