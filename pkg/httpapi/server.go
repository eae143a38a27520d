// Package httpapi exposes the conversational service over HTTP. The
// transport is deliberately thin: JSON in, JSON out, with all
// conversational semantics living in pkg/chat.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rayhan/aska/internal/observability"
	"github.com/rayhan/aska/pkg/auth"
	"github.com/rayhan/aska/pkg/chat"
	"github.com/rayhan/aska/pkg/events"
	"github.com/rayhan/aska/pkg/persona"
)

// SessionHeader carries the transport-level session binding.
const SessionHeader = "X-Session-Id"

// SnapshotSaver persists the session store on demand.
type SnapshotSaver interface {
	Save() error
	SaveAsync()
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Host               string
	Port               int
	RateLimitPerMinute int
	UsersPath          string // where user records are persisted; empty disables
}

// Server is the conversational HTTP server.
type Server struct {
	options        ServerOptions
	server         *http.Server
	service        *chat.Service
	users          *auth.Store
	catalog        *persona.Catalog
	saver          SnapshotSaver
	hub            *events.Hub
	rateLimiter    *RateLimiter
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates the HTTP server. saver and hub may be nil.
func NewServer(options ServerOptions, service *chat.Service, users *auth.Store, catalog *persona.Catalog, saver SnapshotSaver, hub *events.Hub, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 100
	}

	if service == nil {
		return nil, fmt.Errorf("conversation service is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("persona catalog is required")
	}

	return &Server{
		options:     options,
		service:     service,
		users:       users,
		catalog:     catalog,
		saver:       saver,
		hub:         hub,
		rateLimiter: NewRateLimiter(options.RateLimitPerMinute),
		logger:      logger,
		startTime:   time.Now(),
	}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ask", s.wrap(http.MethodPost, s.handleAsk))
	mux.HandleFunc("/history", s.wrap(http.MethodGet, s.handleHistory))
	mux.HandleFunc("/clear-history", s.wrap(http.MethodPost, s.handleClearHistory))
	mux.HandleFunc("/clear-all", s.wrap(http.MethodPost, s.handleClearAll))
	mux.HandleFunc("/sessions", s.wrap(http.MethodGet, s.handleSessions))
	mux.HandleFunc("/personas", s.wrap(http.MethodGet, s.handlePersonas))
	mux.HandleFunc("/categories", s.wrap(http.MethodGet, s.handleCategories))
	mux.HandleFunc("/register", s.wrap(http.MethodPost, s.handleRegister))
	mux.HandleFunc("/login", s.wrap(http.MethodPost, s.handleLogin))
	mux.HandleFunc("/logout", s.wrap(http.MethodPost, s.handleLogout))
	mux.HandleFunc("/save", s.wrap(http.MethodPost, s.handleSave))
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", observability.MetricsHandler())
	if s.hub != nil {
		mux.HandleFunc("/events", s.hub.HandleWS)
	}

	return mux
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down API server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()
	if s.hub != nil {
		s.hub.Close()
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}

	s.logger.Info().Msg("API server stopped")
	return nil
}

// wrap applies the shared request discipline: method check, shutdown
// refusal, in-flight tracking, rate limiting, and access logging.
func (s *Server) wrap(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		ip := s.getClientIP(r)
		if !s.rateLimiter.CheckLimit(ip) {
			retryAfter := s.rateLimiter.GetRetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		handler(w, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", ip).
			Int64("duration", time.Since(start).Milliseconds()).
			Msg("Request completed")
	}
}

// handleHealth reports liveness and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
	})
}

// getClientIP extracts the client IP from the request.
func (s *Server) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// writeJSON sends a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError sends the error shape the API promises.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
