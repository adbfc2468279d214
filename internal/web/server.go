// Package web provides the HTTP API for the interview backend.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roasbeef/midnight/internal/casefile"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8000"

	// DefaultMaxUploadBytes caps the size of an uploaded recording.
	DefaultMaxUploadBytes = 25 << 20
)

// Config holds configuration for the web server.
type Config struct {
	Addr string

	// MaxUploadBytes caps the audio upload size.
	MaxUploadBytes int64

	// AllowedOrigins lists the CORS origins. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:           DefaultAddr,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Server is the HTTP server for the interview API.
type Server struct {
	cfg    *Config
	svc    *casefile.Service
	engine *gin.Engine
	srv    *http.Server
	log    *slog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg *Config, svc *casefile.Service, log *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg: cfg,
		svc: svc,
		log: log.With("component", "web"),
	}

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.MaxUploadBytes
	engine.Use(
		s.requestLogger(),
		gin.CustomRecovery(s.recoverPanic),
		corsMiddleware(cfg.AllowedOrigins),
	)
	s.engine = engine
	s.registerRoutes()

	s.srv = &http.Server{
		Addr:        cfg.Addr,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,

		// Analysis and ranking calls can take up to a minute.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server. It blocks until the server stops and
// returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("Starting web server", "addr", s.cfg.Addr)

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestLogger logs each request once it has been served.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.log.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// recoverPanic turns a handler panic into a 500 error body.
func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.log.Error("Handler panicked", "path", c.Request.URL.Path,
		"panic", recovered)

	writeError(c, http.StatusInternalServerError, "internal_error",
		"internal server error")
}

// corsMiddleware allows browser clients from the given origins, or from any
// origin when none are listed.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := allowedSet[origin]

		switch {
		case origin == "":

		case len(allowedSet) == 0:
			c.Header("Access-Control-Allow-Origin", "*")

		case ok:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods",
			"GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers",
			"Content-Type, Authorization")

		// Handle preflight requests.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
