// Package api exposes the question-answering pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/archive"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/warehouse"
)

type ReadinessCheck func(ctx context.Context) error

// Answerer runs the question pipeline for one request.
type Answerer interface {
	Answer(ctx context.Context, question string, format answer.Format) (answer.Response, error)
}

// ArchiveFetcher reads a previously archived answer back from the object
// store. Nil when archiving is disabled.
type ArchiveFetcher interface {
	Fetch(ctx context.Context, answeredAt time.Time, traceID string) (archive.Record, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Answerer          Answerer
	Archive           ArchiveFetcher
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": cfg.Service.Name,
			"endpoints": []string{
				"/query", "/query/stream", "/query/clean", "/query/html", "/query/visualize",
				"/answers/{date}/{trace_id}", "/healthz", "/readyz", "/metrics",
			},
		})
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /query", func(w http.ResponseWriter, r *http.Request) {
		handleAnswerRaw(deps, w, r)
	})
	mux.HandleFunc("GET /query/stream", func(w http.ResponseWriter, r *http.Request) {
		handleAnswerStream(deps, w, r)
	})
	mux.HandleFunc("GET /query/clean", func(w http.ResponseWriter, r *http.Request) {
		handleAnswerClean(deps, w, r)
	})
	mux.HandleFunc("GET /query/html", func(w http.ResponseWriter, r *http.Request) {
		handleAnswerHTML(deps, w, r)
	})
	mux.HandleFunc("GET /query/visualize", func(w http.ResponseWriter, r *http.Request) {
		handleAnswerVisualize(deps, w, r)
	})
	mux.HandleFunc("GET /answers/{date}/{trace_id}", func(w http.ResponseWriter, r *http.Request) {
		handleArchivedAnswer(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckWarehouse reports readiness of the SQL engine.
func CheckWarehouse(engine warehouse.Engine) ReadinessCheck {
	return func(ctx context.Context) error {
		if engine == nil {
			return errors.New("warehouse engine is not configured")
		}
		return engine.HealthCheck(ctx)
	}
}

// CheckAIConfig verifies the model provider credentials are present.
func CheckAIConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.APIKey == "" {
			return errors.New("ai api key is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
