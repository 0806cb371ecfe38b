// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Extract  ExtractConfig  `mapstructure:"extract" yaml:"extract"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`

	// Grab gets its marching orders from CLI flags, not the config file.
	Grab GrabConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the controlled Chrome instance.
type BrowserConfig struct {
	// DebugPort is the remote-debugging port a self-launched Chrome binds.
	// A constructor parameter rather than ambient state so future callers can
	// run several sessions without port collisions.
	DebugPort int `mapstructure:"debug_port" yaml:"debug_port"`

	// ExecPath overrides Chrome binary discovery. Empty means autodetect.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`

	// ProfileDir overrides profile-directory discovery. Empty means the
	// platform default. The directory is only ever read; launches use a
	// temporary clone.
	ProfileDir string `mapstructure:"profile_dir" yaml:"profile_dir"`

	// LaunchWait bounds how long Acquire polls the debug port for a freshly
	// spawned Chrome to become reachable.
	LaunchWait time.Duration `mapstructure:"launch_wait" yaml:"launch_wait"`

	// ReleaseGrace bounds how long Release waits for a terminated Chrome to
	// exit before falling back to kill-by-port.
	ReleaseGrace time.Duration `mapstructure:"release_grace" yaml:"release_grace"`
}

// ExtractConfig tunes the in-browser extraction phase. The browser operations
// here are infrequent and high latency, hence the generous fixed timeouts.
type ExtractConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ViewerTimeout     time.Duration `mapstructure:"viewer_timeout" yaml:"viewer_timeout"`
	GateTimeout       time.Duration `mapstructure:"gate_timeout" yaml:"gate_timeout"`

	// GateEmail is submitted when the viewer presents an email gate. The
	// upstream accepts any syntactically valid address.
	GateEmail string `mapstructure:"gate_email" yaml:"gate_email"`
}

// DownloadConfig tunes the parallel download phase.
type DownloadConfig struct {
	// Workers bounds the download worker pool. Signed URLs expire within
	// minutes, so this leans high.
	Workers int `mapstructure:"workers" yaml:"workers"`

	// MaxAttempts is the total tries per URL, first attempt included.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// BackoffUnit scales the linear backoff: attempt k waits k*BackoffUnit.
	BackoffUnit time.Duration `mapstructure:"backoff_unit" yaml:"backoff_unit"`

	// FetchTimeout bounds a single GET.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// GrabConfig holds settings populated from CLI flags for one invocation.
type GrabConfig struct {
	Target   string
	Output   string
	Email    string
	CDPURL   string
	URLFile  string
	Headless bool
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "docgrab")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.debug_port", 9222)
	v.SetDefault("browser.launch_wait", "20s")
	v.SetDefault("browser.release_grace", "10s")

	// -- Extract --
	v.SetDefault("extract.navigation_timeout", "60s")
	v.SetDefault("extract.viewer_timeout", "30s")
	v.SetDefault("extract.gate_timeout", "3s")
	v.SetDefault("extract.gate_email", "viewer@example.com")

	// -- Download --
	v.SetDefault("download.workers", 16)
	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.backoff_unit", "1s")
	v.SetDefault("download.fetch_timeout", "30s")
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated purely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults must always validate.
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Browser.DebugPort <= 0 || c.Browser.DebugPort > 65535 {
		return fmt.Errorf("browser.debug_port must be a valid TCP port, got %d", c.Browser.DebugPort)
	}
	if c.Download.Workers <= 0 {
		return fmt.Errorf("download.workers must be a positive integer")
	}
	if c.Download.MaxAttempts <= 0 {
		return fmt.Errorf("download.max_attempts must be a positive integer")
	}
	if c.Download.BackoffUnit < 0 {
		return fmt.Errorf("download.backoff_unit must not be negative")
	}
	return nil
}
