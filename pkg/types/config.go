package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citeassist/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RenderBackend identifies how typesetting sources are turned into PDFs.
type RenderBackend string

const (
	BackendHTTP      RenderBackend = "http"
	BackendContainer RenderBackend = "container"
)

// RenderConfig holds settings for the render stage.
type RenderConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the renderer: http (remote job service) or container.
	Backend RenderBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// BaseURL is the renderer's submission endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// PollInterval is the delay between poll attempts (default 1s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// MaxAttempts is the poll attempt ceiling (default 30).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// PollTimeout bounds the whole wait; zero derives it from the other
	// poll settings so that it never cuts the attempt count short.
	PollTimeout time.Duration `json:"poll_timeout" yaml:"poll_timeout" mapstructure:"poll_timeout"`

	// PollRequestTimeout bounds each poll request; zero means PollInterval.
	PollRequestTimeout time.Duration `json:"poll_request_timeout" yaml:"poll_request_timeout" mapstructure:"poll_request_timeout"`

	// Backoff is "constant" (default) or "exponential" (with full jitter).
	Backoff string `json:"backoff" yaml:"backoff" mapstructure:"backoff"`

	// MaxBackoff caps exponential delays.
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`

	// RateLimit is the maximum job submission rate to the renderer in
	// requests per second. Polls are not limited.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Token is an optional bearer token for the renderer.
	Token string `json:"-" yaml:"-" mapstructure:"token"`

	// ContainerImage is the LaTeX image used by the container backend.
	ContainerImage string `json:"container_image" yaml:"container_image" mapstructure:"container_image"`
}

// ComposeConfig holds settings for the composition stage.
type ComposeConfig struct {
	// ButtonImage is an optional PNG replacing the embedded citation button.
	ButtonImage string `json:"button_image" yaml:"button_image" mapstructure:"button_image"`

	// SheetBaseURL, when set, links the sheet to "<base>/preprint/<id>".
	SheetBaseURL string `json:"sheet_base_url" yaml:"sheet_base_url" mapstructure:"sheet_base_url"`
}

// ServerConfig holds settings for the relay HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default ":9000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes limits request bodies (default 32 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// CORSOrigins lists origins allowed to call the server from a browser.
	// "*" allows any origin.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LedgerConfig holds settings for the sheet history database.
type LedgerConfig struct {
	// Path is the SQLite database file; empty disables the ledger.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups all settings.
type Config struct {
	Render   RenderConfig  `json:"render" yaml:"render" mapstructure:"render"`
	Compose  ComposeConfig `json:"compose" yaml:"compose" mapstructure:"compose"`
	Server   ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Ledger   LedgerConfig  `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	LogLevel string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   10 * time.Second,
				UserAgent: "citeassist/0.1",
			},
			Backend:        BackendHTTP,
			BaseURL:        "http://latex-render:8080",
			PollInterval:   time.Second,
			MaxAttempts:    30,
			Backoff:        "constant",
			MaxBackoff:     5 * time.Second,
			RateLimit:      10,
			ContainerImage: "citeassist/pdflatex:latest",
		},
		Server: ServerConfig{
			Addr:            ":9000",
			MaxUploadBytes:  32 << 20,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Ledger: LedgerConfig{
			Path: "citeassist.db",
		},
		LogLevel: "info",
	}
}
