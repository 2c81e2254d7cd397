package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sgisi-platform/go-core/internal/evidence"
	"github.com/sgisi-platform/go-core/internal/identity"
	"github.com/sgisi-platform/go-core/internal/mailer"
	"github.com/sgisi-platform/go-core/internal/metrics"
	"github.com/sgisi-platform/go-core/internal/policy"
	"github.com/sgisi-platform/go-core/internal/store"
)

// Server is the REST API server
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
	config     Config
	startTime  time.Time

	identity  *identity.Service
	resolver  *identity.Resolver
	profiles  store.Profiles
	teams     store.Teams
	incidents store.Incidents
	evidence  *evidence.Proxy
	mailer    mailer.Sender
	exporter  *policy.Exporter
	metrics   *metrics.Metrics
}

// Config configures the REST API server
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableCORS   bool
	CORSOrigins  []string
	Version      string
}

// DefaultConfig returns default REST server configuration
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		EnableCORS:   true,
		CORSOrigins:  []string{"*"},
		Version:      "1.0.0",
	}
}

// Deps bundles the collaborators the server routes requests to
type Deps struct {
	Identity  *identity.Service
	Resolver  *identity.Resolver
	Profiles  store.Profiles
	Teams     store.Teams
	Incidents store.Incidents
	Evidence  *evidence.Proxy
	Mailer    mailer.Sender
	Exporter  *policy.Exporter
	Metrics   *metrics.Metrics
}

// New creates a new REST API server
func New(cfg Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Identity == nil || deps.Resolver == nil {
		return nil, fmt.Errorf("identity service and resolver are required")
	}
	if deps.Profiles == nil || deps.Teams == nil || deps.Incidents == nil {
		return nil, fmt.Errorf("entity stores are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
		identity:  deps.Identity,
		resolver:  deps.Resolver,
		profiles:  deps.Profiles,
		teams:     deps.Teams,
		incidents: deps.Incidents,
		evidence:  deps.Evidence,
		mailer:    deps.Mailer,
		exporter:  deps.Exporter,
		metrics:   deps.Metrics,
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// registerRoutes registers all REST API routes
func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}

	// Health and status endpoints (no auth required)
	s.router.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	s.router.HandleFunc("/v1/status", s.statusHandler).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()

	// Authentication endpoints (no session required)
	auth := v1.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", s.signUpHandler).Methods("POST")
	auth.HandleFunc("/signin", s.signInHandler).Methods("POST")
	auth.HandleFunc("/signout", s.signOutHandler).Methods("POST")
	auth.HandleFunc("/send-code", s.sendCodeHandler).Methods("POST")

	// Session-scoped endpoints
	protected := v1.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/auth/me", s.meHandler).Methods("GET")

	profiles := protected.PathPrefix("/profiles").Subrouter()
	profiles.HandleFunc("", s.listProfilesHandler).Methods("GET")
	profiles.HandleFunc("/{id}", s.getProfileHandler).Methods("GET")
	profiles.HandleFunc("/{id}", s.updateProfileHandler).Methods("PUT")

	teams := protected.PathPrefix("/teams").Subrouter()
	teams.HandleFunc("", s.listTeamsHandler).Methods("GET")
	teams.HandleFunc("", s.createTeamHandler).Methods("POST")
	teams.HandleFunc("/{id}", s.getTeamHandler).Methods("GET")
	teams.HandleFunc("/{id}", s.updateTeamHandler).Methods("PUT")
	teams.HandleFunc("/{id}", s.deleteTeamHandler).Methods("DELETE")

	incidents := protected.PathPrefix("/incidentes").Subrouter()
	incidents.HandleFunc("", s.listIncidentsHandler).Methods("GET")
	incidents.HandleFunc("", s.createIncidentHandler).Methods("POST")
	incidents.HandleFunc("/{id}", s.getIncidentHandler).Methods("GET")
	incidents.HandleFunc("/{id}", s.updateIncidentHandler).Methods("PUT")
	incidents.HandleFunc("/{id}", s.deleteIncidentHandler).Methods("DELETE")

	if s.evidence != nil {
		ev := protected.PathPrefix("/evidence").Subrouter()
		ev.HandleFunc("", s.uploadEvidenceHandler).Methods("POST")
		ev.HandleFunc("/{name}", s.downloadEvidenceHandler).Methods("GET")
	}

	if s.exporter != nil {
		protected.HandleFunc("/policy/matrix", s.policyMatrixHandler).Methods("GET")
	}
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server",
		zap.Int("port", s.config.Port),
		zap.Bool("cors_enabled", s.config.EnableCORS),
	)

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the REST API server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements http.Handler interface for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// loggingMiddleware logs HTTP requests and records latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", duration),
			zap.String("remote_addr", r.RemoteAddr),
		)

		if s.metrics != nil {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			s.metrics.ObserveRequest(r.Method, route, wrapped.statusCode, duration)
		}
	})
}

// recoveryMiddleware recovers from panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheckHandler handles health check requests
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"identity": "ok",
		"stores":   "ok",
	}

	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    checks,
	})
}

// statusHandler handles service status requests
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, StatusResponse{
		Version:   s.config.Version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
