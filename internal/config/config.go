// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Position() PositionConfig
	Browser() BrowserConfig
	Simulate() SimulateConfig
	Output() OutputConfig
	Server() ServerConfig
	Database() DatabaseConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	PositionCfg PositionConfig `mapstructure:"position" yaml:"position"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	SimulateCfg SimulateConfig `mapstructure:"simulate" yaml:"simulate"`
	OutputCfg   OutputConfig   `mapstructure:"output" yaml:"output"`
	ServerCfg   ServerConfig   `mapstructure:"server" yaml:"server"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Position() PositionConfig { return c.PositionCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Simulate() SimulateConfig { return c.SimulateCfg }
func (c *Config) Output() OutputConfig     { return c.OutputCfg }
func (c *Config) Server() ServerConfig     { return c.ServerCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// PositionConfig tunes the placement engine.
type PositionConfig struct {
	// DefaultPlacement is used when a command is given no placement token.
	DefaultPlacement string `mapstructure:"default_placement" yaml:"default_placement"`
	// AppendToBody selects document-relative host geometry by default.
	AppendToBody bool `mapstructure:"append_to_body" yaml:"append_to_body"`
	// MaxAncestorDepth bounds the offset parent walk.
	MaxAncestorDepth int `mapstructure:"max_ancestor_depth" yaml:"max_ancestor_depth"`
	// StyleProbes lists, in order, where the position style is read from.
	StyleProbes []string `mapstructure:"style_probes" yaml:"style_probes"`
}

// BrowserConfig holds settings for the headless browser used by `browse`.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration  `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	ActionTimeout     time.Duration  `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// SimulateConfig configures fixture evaluation.
type SimulateConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	// Format is "json" or "text".
	Format string `mapstructure:"format" yaml:"format"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// ServerConfig configures the HTTP placement API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// APIKey enables bearer authentication on /v1 routes when set.
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// DatabaseConfig points at the PostgreSQL capture store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// knownProbes mirrors the probe names accepted by the position package.
var knownProbes = map[string]struct{}{
	"computed": {},
	"current":  {},
	"inline":   {},
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "anchorpoint")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Position --
	v.SetDefault("position.default_placement", "top")
	v.SetDefault("position.append_to_body", false)
	v.SetDefault("position.max_ancestor_depth", 256)
	v.SetDefault("position.style_probes", []string{"computed", "current", "inline"})

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport", map[string]int{"width": 1280, "height": 800})
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.post_load_wait", "500ms")
	v.SetDefault("browser.action_timeout", "10s")

	// -- Simulate --
	v.SetDefault("simulate.concurrency", 4)

	// -- Output --
	v.SetDefault("output.format", "json")
	v.SetDefault("output.pretty", true)

	// -- Server --
	v.SetDefault("server.addr", "127.0.0.1:8089")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
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

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.PositionCfg.Validate(); err != nil {
		return fmt.Errorf("position configuration invalid: %w", err)
	}
	if c.SimulateCfg.Concurrency <= 0 {
		return fmt.Errorf("simulate.concurrency must be a positive integer")
	}
	switch c.OutputCfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("output.format must be 'json' or 'text', got %q", c.OutputCfg.Format)
	}
	switch c.LoggerCfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be 'console' or 'json', got %q", c.LoggerCfg.Format)
	}
	if c.BrowserCfg.NavigationTimeout < 0 || c.BrowserCfg.ActionTimeout < 0 {
		return fmt.Errorf("browser timeouts must not be negative")
	}
	if c.ServerCfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be a positive integer")
	}
	return nil
}

// Validate checks the PositionConfig settings.
func (p *PositionConfig) Validate() error {
	if p.MaxAncestorDepth <= 0 {
		return fmt.Errorf("max_ancestor_depth must be a positive integer")
	}
	if len(p.StyleProbes) == 0 {
		return fmt.Errorf("style_probes must list at least one probe")
	}
	for _, name := range p.StyleProbes {
		if _, ok := knownProbes[name]; !ok {
			return fmt.Errorf("unknown style probe %q", name)
		}
	}
	return nil
}
