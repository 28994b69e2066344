// Package server provides the HTTP REST API for the fraud analysis pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/marek/jobshield/internal/analysis"
	"github.com/marek/jobshield/internal/classify"
	"github.com/marek/jobshield/internal/config"
	"github.com/marek/jobshield/internal/db"
	"github.com/marek/jobshield/internal/factstore"
	"github.com/marek/jobshield/internal/feedback"
	"github.com/marek/jobshield/internal/observability"
	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/reputation"
	"github.com/marek/jobshield/internal/server/middleware"
	"github.com/marek/jobshield/internal/server/ratelimit"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	analyzer    *analysis.Analyzer
	classifier  *classify.Classifier
	checker     *reputation.Checker
	ledger      *feedback.Ledger
	library     *patterns.Library
	source      *factstore.CachedSource
	archive     *db.DB // nil when no Postgres archive is configured
	apiKey      string
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService // nil when bearer auth is disabled
}

// Deps are the wired pipeline collaborators the handlers serve.
// Analyzer, Classifier, and Checker are required; Ledger, Library, Source,
// and Archive degrade to 503s or omitted response fields when nil.
type Deps struct {
	Analyzer   *analysis.Analyzer
	Classifier *classify.Classifier
	Checker    *reputation.Checker
	Ledger     *feedback.Ledger
	Library    *patterns.Library
	Source     *factstore.CachedSource
	Archive    *db.DB
}

// Config holds server configuration
type Config struct {
	Port   int
	APIKey string // shared secret exchanged for bearer tokens; empty disables /auth/token
}

// New creates a new server instance
func New(deps Deps, cfg Config) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("server requires an analyzer")
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("server requires a classifier")
	}
	if deps.Checker == nil {
		return nil, fmt.Errorf("server requires a reputation checker")
	}

	s := &Server{
		analyzer:   deps.Analyzer,
		classifier: deps.Classifier,
		checker:    deps.Checker,
		ledger:     deps.Ledger,
		library:    deps.Library,
		source:     deps.Source,
		archive:    deps.Archive,
		apiKey:     cfg.APIKey,
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	// Bearer auth is optional: no JWT_SECRET means open mutating routes.
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	if jwtConfig != nil {
		s.jwtService = NewJWTService(jwtConfig)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.router()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // analyze/stream holds the connection across stages
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// router builds the route table. Mutating routes go through bearer auth
// when a JWT service is configured.
func (s *Server) router() http.Handler {
	mux := http.NewServeMux()

	// Analysis pipeline
	mux.Handle("POST /analyze", s.guarded(s.handleAnalyze))
	mux.Handle("POST /analyze/stream", s.guarded(s.handleAnalyzeStream))
	mux.HandleFunc("POST /classify", s.handleClassify)

	// Feedback and community reports
	mux.Handle("POST /feedback", s.guarded(s.handleSubmitFeedback))
	mux.Handle("POST /reports", s.guarded(s.handleCreateReport))
	mux.HandleFunc("GET /reports", s.handleListReports)
	mux.HandleFunc("GET /reports/{id}", s.handleGetReport)

	// Archive-backed history
	mux.HandleFunc("GET /analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /analyses/{id}", s.handleGetAnalysis)

	// Reputation and pattern introspection
	mux.HandleFunc("GET /domains/{domain}", s.handleCheckDomain)
	mux.HandleFunc("GET /patterns", s.handleGetPatterns)
	mux.HandleFunc("GET /stats", s.handleStats)

	// Auth
	mux.HandleFunc("POST /auth/token", s.handleIssueToken)

	// Operational
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// guarded wraps a mutating handler with bearer auth when it is enabled.
func (s *Server) guarded(h http.HandlerFunc) http.Handler {
	if s.jwtService == nil {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		observability.Logger().Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Logger().Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	observability.Logger().Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
	if s.archive != nil {
		s.archive.Close()
	}

	observability.Logger().Info("server stopped")
	return nil
}

// withCORS adds CORS headers. The browser extension calls this API from
// arbitrary page origins, so the policy stays permissive.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		observability.Logger().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Logger().Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
// In the future, this could use X-Forwarded-For header (only from trusted proxies).
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	observability.Logger().Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
