package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/controller"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend is the prediction service as seen by the server: everything a
// session controller needs plus the image upload.
type Backend interface {
	controller.Backend
	UploadImage(ctx context.Context, filename string, r io.Reader) (backend.UploadResponse, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	backend     Backend
	corsOrigin  string
	maxUploadMB int64
	imageDir    string
	version     string
	session     controller.Config
	rateLimiter *RateLimiter
	logger      *slog.Logger

	// sessions are children of ctx; Close cancels it and waits for them.
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	closed   bool
	sessions sync.WaitGroup
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	ImageDir    string
	Version     string
	Session     controller.Config
	RateLimit   RateLimitConfig
	Logger      *slog.Logger
}

// RateLimitConfig limits uploads per client.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a server that forwards to b.
func NewServer(config Config, b Backend) (*Server, error) {
	if b == nil {
		return nil, errors.New("server: backend is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}
	if config.Session.ImageDir == "" {
		config.Session.ImageDir = config.ImageDir
	}

	s := &Server{
		backend:     b,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: maxUpload,
		imageDir:    config.ImageDir,
		version:     config.Version,
		session:     config.Session,
		logger:      logger,
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit.RequestsPerMinute)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Close ends every open editor session and waits for their controllers.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.sessions.Wait()
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/upload_image", s.corsMiddleware(s.rateLimitMiddleware(s.uploadImageHandler)))
	mux.HandleFunc("/ws", s.editorWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
