// cmd/mcp-server/main.go — Standalone HTTP MCP server for gocas
//
// Exposes the gocas tools as an HTTP endpoint for AI agent frameworks.
//
// Usage:
//
//	go run ./cmd/mcp-server -addr :8080
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Metrics endpoint:   GET  /metrics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gocas "github.com/njchilds90/gocas"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type config struct {
	Addr        string        `env:"GOCAS_ADDR" envDefault:":8080"`
	ToolTimeout time.Duration `env:"GOCAS_TOOL_TIMEOUT" envDefault:"10s"`
	MaxDepth    int           `env:"GOCAS_MAX_DEPTH" envDefault:"10"`
	LogLevel    slog.Level    `env:"GOCAS_LOG_LEVEL" envDefault:"info"`
}

var (
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gocas_tool_calls_total",
		Help: "Tool calls handled, by tool name.",
	}, []string{"tool"})
	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gocas_tool_duration_seconds",
		Help:    "Tool call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
	integrationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gocas_integrations_total",
		Help: "Integration outcomes, by result kind.",
	}, []string{"kind"})
)

func main() {
	addrFlag := flag.String("addr", "", "listen address (overrides GOCAS_ADDR)")
	flag.Parse()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	mux := newMux(cfg, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gocas MCP server listening", "addr", cfg.Addr,
		"tool_timeout", cfg.ToolTimeout, "max_depth", cfg.MaxDepth)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newMux(cfg config, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// POST /tool — handle a tool call
	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		log := logger.With("request_id", reqID)
		// Set before any branch writes, so error responses stay correlatable
		// with the server logs.
		w.Header().Set("X-Request-ID", reqID)

		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in /tool", "panic", rec, "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req gocas.ToolRequest
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// Ensure there's no trailing junk.
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		// Server-side defaults the client did not set.
		if req.Tool == "integrate" && cfg.MaxDepth > 0 {
			if req.Params == nil {
				req.Params = map[string]interface{}{}
			}
			if _, ok := req.Params["max_depth"]; !ok {
				req.Params["max_depth"] = float64(cfg.MaxDepth)
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.ToolTimeout)
		defer cancel()

		resp := gocas.HandleToolCall(ctx, req)

		elapsed := time.Since(start)
		toolCalls.WithLabelValues(req.Tool).Inc()
		toolDuration.WithLabelValues(req.Tool).Observe(elapsed.Seconds())
		if resp.Kind != "" {
			integrationOutcomes.WithLabelValues(resp.Kind).Inc()
		}
		if resp.Error != "" {
			log.Warn("tool call failed", "tool", req.Tool, "error", resp.Error, "duration", elapsed)
		} else {
			log.Debug("tool call", "tool", req.Tool, "kind", resp.Kind, "duration", elapsed)
		}

		writeJSON(w, http.StatusOK, resp)
	})

	// GET /schema — return tool schema for agent registration
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, gocas.MCPToolSpec())
	})

	// GET /health — liveness check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	// GET /metrics — Prometheus scrape target
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
