// Package config loads and watches the narrata client configuration.
package config

// Config is the full client configuration.
type Config struct {
	Server   ServerCfg   `mapstructure:"server" yaml:"server"`
	Poll     PollCfg     `mapstructure:"poll" yaml:"poll"`
	Progress ProgressCfg `mapstructure:"progress" yaml:"progress"`
	Display  DisplayCfg  `mapstructure:"display" yaml:"display"`
}

// ServerCfg configures the connection to the narrata server.
type ServerCfg struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Token          string `mapstructure:"token" yaml:"token"` // Bearer token (supports ${ENV_VAR} syntax)
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"` // Retry attempts for transient failures
}

// PollCfg configures extraction status polling.
type PollCfg struct {
	IntervalMs       int `mapstructure:"interval_ms" yaml:"interval_ms"`             // Poll interval in milliseconds
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold"` // Consecutive transient failures before giving up
}

// ProgressCfg configures the remaining-time estimator. The correction
// slope is an empirical smoothing constant, not a derived value.
type ProgressCfg struct {
	CorrectionSlope float64 `mapstructure:"correction_slope" yaml:"correction_slope"`
}

// DisplayCfg configures client-side rendering of fetched data.
type DisplayCfg struct {
	SnippetLength int `mapstructure:"snippet_length" yaml:"snippet_length"` // Max runes of part content shown in TOC rows
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			URL:            "http://localhost:8000",
			Token:          "${NARRATA_TOKEN}",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Poll: PollCfg{
			IntervalMs:       1000,
			FailureThreshold: 10,
		},
		Progress: ProgressCfg{
			CorrectionSlope: 2.0,
		},
		Display: DisplayCfg{
			SnippetLength: 120,
		},
	}
}
