package config

// Config is the complete annotator configuration. Values are resolved from
// defaults, an optional annotator.yaml, ANNOTATOR_* environment variables and
// command-line flags, in increasing order of precedence.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Backend BackendConfig `mapstructure:"backend" yaml:"backend" json:"backend"`
	Editor  EditorConfig  `mapstructure:"editor" yaml:"editor" json:"editor"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `mapstructure:"host" yaml:"host" json:"host"`
	Port              int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin        string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec        int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitEnabled  bool   `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
}

// BackendConfig points the editor at the prediction backend.
type BackendConfig struct {
	BaseURL       string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	TimeoutSec    int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ImageIDPrefix string `mapstructure:"image_id_prefix" yaml:"image_id_prefix" json:"image_id_prefix"`
}

// EditorConfig holds per-session editing and rendering settings.
type EditorConfig struct {
	HandleSize   int    `mapstructure:"handle_size" yaml:"handle_size" json:"handle_size"`
	ImageDir     string `mapstructure:"image_dir" yaml:"image_dir" json:"image_dir"`
	CanvasWidth  int    `mapstructure:"canvas_width" yaml:"canvas_width" json:"canvas_width"`
	CanvasHeight int    `mapstructure:"canvas_height" yaml:"canvas_height" json:"canvas_height"`
	BoxColor     string `mapstructure:"box_color" yaml:"box_color" json:"box_color"`
	PolyColor    string `mapstructure:"poly_color" yaml:"poly_color" json:"poly_color"`
	HandleColor  string `mapstructure:"handle_color" yaml:"handle_color" json:"handle_color"`
	RenderFrames bool   `mapstructure:"render_frames" yaml:"render_frames" json:"render_frames"`
}
