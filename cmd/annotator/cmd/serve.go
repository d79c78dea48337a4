package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/server"
	"github.com/MeKo-Tech/annotator/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the annotation editor service",
	Long: `Start an HTTP server that hosts interactive annotation sessions.

The server provides the following endpoints:
  POST /upload_image - Store an image and forward it to the prediction backend
  GET  /ws           - WebSocket editor session (one session per connection)
  GET  /health       - Health check endpoint
  GET  /metrics      - Prometheus metrics

Examples:
  annotator serve
  annotator serve --port 8080 --backend-url http://predict:5000
  annotator serve --host 0.0.0.0 --image-dir /var/lib/annotator/images`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		logger := slog.Default()

		client, err := backend.NewClient(cfg.ToBackendConfig(logger))
		if err != nil {
			return fmt.Errorf("failed to create backend client: %w", err)
		}
		session, err := cfg.ToControllerConfig(logger)
		if err != nil {
			return err
		}

		editorServer, err := server.NewServer(server.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigin:  cfg.Server.CORSOrigin,
			MaxUploadMB: int64(cfg.Server.MaxUploadMB),
			TimeoutSec:  cfg.Server.TimeoutSec,
			ImageDir:    cfg.Editor.ImageDir,
			Version:     version.Version,
			Session:     session,
			RateLimit: server.RateLimitConfig{
				Enabled:           cfg.Server.RateLimitEnabled,
				RequestsPerMinute: cfg.Server.RequestsPerMinute,
			},
			Logger: logger,
		}, client)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		mux := http.NewServeMux()
		editorServer.SetupRoutes(mux)

		// No write timeout: WebSocket sessions are long lived.
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting annotator server",
				"host", cfg.Server.Host,
				"port", cfg.Server.Port,
				"backend", cfg.Backend.BaseURL)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				_ = editorServer.Close()
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			logger.Info("Received shutdown signal")
		}

		shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		logger.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections are not tracked by Shutdown, so the
		// editor sessions are closed explicitly afterwards.
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := editorServer.Close(); err != nil {
			logger.Error("Editor session cleanup error", "error", err)
		}

		logger.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.StringP("host", "H", "localhost", "server host")
	flags.IntP("port", "p", 8080, "server port")
	flags.String("cors-origin", "*", "CORS allowed origin")
	flags.Int("max-upload-size", 50, "maximum upload size in MB")
	flags.Int("timeout", 30, "request read timeout in seconds")
	flags.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	flags.Bool("rate-limit-enabled", false, "enable per-client rate limiting of uploads")
	flags.Int("requests-per-minute", 120, "maximum uploads per minute per client")
	flags.String("backend-url", "http://localhost:5000", "prediction backend base URL")
	flags.Int("backend-timeout", 30, "backend request timeout in seconds")
	flags.String("image-id-prefix", "", "prefix for generated image ids")
	flags.String("image-dir", "images", "directory uploaded images are stored in")
	flags.Int("handle-size", 8, "side of the square hit area around handles, in pixels")
	flags.Bool("render-frames", true, "stream rendered PNG frames to editor clients")

	for key, flag := range map[string]string{
		"server.host":                "host",
		"server.port":                "port",
		"server.cors_origin":         "cors-origin",
		"server.max_upload_mb":       "max-upload-size",
		"server.timeout_sec":         "timeout",
		"server.shutdown_timeout":    "shutdown-timeout",
		"server.rate_limit_enabled":  "rate-limit-enabled",
		"server.requests_per_minute": "requests-per-minute",
		"backend.base_url":           "backend-url",
		"backend.timeout_sec":        "backend-timeout",
		"backend.image_id_prefix":    "image-id-prefix",
		"editor.image_dir":           "image-dir",
		"editor.handle_size":         "handle-size",
		"editor.render_frames":       "render-frames",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}
