package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/controller"
	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/render"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RateLimitEnabled:  false,
			RequestsPerMinute: 120,
		},
		Backend: BackendConfig{
			BaseURL:       "http://localhost:5000",
			TimeoutSec:    30,
			ImageIDPrefix: "",
		},
		Editor: EditorConfig{
			HandleSize:   editor.DefaultHandleSize,
			ImageDir:     "images",
			CanvasWidth:  controller.DefaultCanvasWidth,
			CanvasHeight: controller.DefaultCanvasHeight,
			BoxColor:     render.DefaultBoxColor,
			PolyColor:    render.DefaultPolyColor,
			HandleColor:  render.DefaultHandleColor,
			RenderFrames: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimitEnabled && c.Server.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid requests per minute: %d (must be positive)", c.Server.RequestsPerMinute)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q (must be an absolute http or https url)", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSec <= 0 {
		return fmt.Errorf("invalid backend timeout: %d (must be positive)", c.Backend.TimeoutSec)
	}

	if c.Editor.HandleSize <= 0 {
		return fmt.Errorf("invalid handle size: %d (must be positive)", c.Editor.HandleSize)
	}
	if c.Editor.CanvasWidth <= 0 || c.Editor.CanvasHeight <= 0 {
		return fmt.Errorf("invalid canvas size: %dx%d (must be positive)", c.Editor.CanvasWidth, c.Editor.CanvasHeight)
	}
	if _, err := c.Style(); err != nil {
		return err
	}

	return nil
}

// Style parses the configured editor colors.
func (c *Config) Style() (render.Style, error) {
	return render.ParseStyle(c.Editor.BoxColor, c.Editor.PolyColor, c.Editor.HandleColor)
}

// SlogLevel maps LogLevel onto a slog level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ToBackendConfig converts the config to a backend client configuration.
func (c *Config) ToBackendConfig(logger *slog.Logger) backend.Config {
	return backend.Config{
		BaseURL: c.Backend.BaseURL,
		Timeout: time.Duration(c.Backend.TimeoutSec) * time.Second,
		Logger:  logger,
	}
}

// ToControllerConfig converts the config to a per-session controller configuration.
func (c *Config) ToControllerConfig(logger *slog.Logger) (controller.Config, error) {
	style, err := c.Style()
	if err != nil {
		return controller.Config{}, err
	}
	return controller.Config{
		HandleSize:    c.Editor.HandleSize,
		ImageDir:      c.Editor.ImageDir,
		ImageIDPrefix: c.Backend.ImageIDPrefix,
		CanvasWidth:   c.Editor.CanvasWidth,
		CanvasHeight:  c.Editor.CanvasHeight,
		RenderFrames:  c.Editor.RenderFrames,
		Style:         style,
		Logger:        logger,
	}, nil
}
