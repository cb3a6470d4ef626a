// Package server exposes the orchestrator over HTTP JSON and gRPC.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
)

const maxBody = 1 << 20

// #region handler
type api struct {
	orch    *orchestrator.Orchestrator
	started time.Time
	log     *slog.Logger
}

// NewHandler returns the HTTP API. gatherer serves /metrics; nil uses the
// default Prometheus registry.
func NewHandler(orch *orchestrator.Orchestrator, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	a := &api{orch: orch, started: time.Now(), log: logging.New("http")}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/decide", a.handleDecide)
	mux.HandleFunc("POST /v1/feedback", a.handleFeedback)
	mux.HandleFunc("GET /v1/stats", a.handleStats)
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// #endregion handler

// #region handlers
func (a *api) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.DecisionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, a.orch.Decide(req))
}

func (a *api) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.FeedbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.orch.Feedback(req)
	if err != nil {
		code := feedbackStatus(err)
		if code == http.StatusInternalServerError {
			a.log.Error("feedback failed", slog.Any("error", err))
		}
		writeJSON(w, code, map[string]any{"error": err.Error(), "result": resp.Result})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.Stats())
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"adaptive": a.orch.Adaptive(),
		"uptime":   time.Since(a.started).Round(time.Second).String(),
	})
}

// #endregion handlers

// #region helpers
func feedbackStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, signals.ErrNoReward), errors.Is(err, orchestrator.ErrIncompleteFeedback):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrDuplicateFeedback):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// #endregion helpers
