// Package api provides the thin HTTP surface for the transaction engine:
// health, version, and Prometheus metrics. The engine itself has no
// inbound HTTP traffic to serve — transactions arrive via AddTransaction,
// not HTTP — so this surface exists purely for operability.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/somnia-chain/substrate-tx-engine/internal/config"
	"github.com/somnia-chain/substrate-tx-engine/internal/metrics"
)

// StatusProvider reports a lightweight snapshot of engine health.
type StatusProvider interface {
	Ready() bool
}

// Server handles HTTP requests for the transaction engine.
type Server struct {
	status StatusProvider
}

// NewServer creates a new API Server.
func NewServer(status StatusProvider) *Server {
	return &Server{status: status}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready := s.status == nil || s.status.Ready()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":  statusString(ready),
		"version": config.Version,
	})
}

func statusString(ready bool) string {
	if ready {
		return "healthy"
	}
	return "gateway not initialized"
}

// handleVersion handles the version endpoint.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"version":   config.Version,
		"gitCommit": config.GitCommit,
		"buildTime": config.BuildTime,
	})
}

// HandleRequest is the main request handler.
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := r.URL.Path
	if path == "" {
		path = "/"
	}

	wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	s.handleRequestInternal(wrapped, r)

	if path != "/metrics" {
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	}
}

func (s *Server) handleRequestInternal(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Request received", "method", r.Method, "url", r.URL.String())

	switch r.URL.Path {
	case "/metrics":
		promhttp.Handler().ServeHTTP(w, r)
	case "/health":
		s.handleHealth(w, r)
	case "/version":
		s.handleVersion(w, r)
	default:
		sendError(w, http.StatusNotFound, "Not found")
	}
}
