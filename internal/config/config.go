// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Components receive the
// sub-struct they need at construction time; there are no process-wide mutable
// globals beyond the logger.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Scanners ScannersConfig `mapstructure:"scanners" yaml:"scanners"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig controls the zap logger bootstrap.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File output (rotated by lumberjack). Disabled when LogFile is empty.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// HTTPConfig tunes the shared outbound HTTP client used by probes and
// backends.
type HTTPConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`

	MaxIdleConns        int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_conns_per_host" yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int `mapstructure:"max_conns_per_host" yaml:"max_conns_per_host"`

	// Probe traffic pacing, shared across all probe bundles of a scan.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// PipelineConfig carries the default per-stage deadlines and the overall run
// ceiling. Profile overrides on the Target win over these defaults; the
// overall ceiling always wins over everything.
type PipelineConfig struct {
	ScanTimeout    time.Duration `mapstructure:"scan_timeout" yaml:"scan_timeout"`
	AnalyzeTimeout time.Duration `mapstructure:"analyze_timeout" yaml:"analyze_timeout"`
	ReportTimeout  time.Duration `mapstructure:"report_timeout" yaml:"report_timeout"`
	OverallTimeout time.Duration `mapstructure:"overall_timeout" yaml:"overall_timeout"`
}

// RemoteScannerConfig configures one remote scanner engine speaking the
// job-oriented protocol (submit, poll, fetch).
type RemoteScannerConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// JobTimeout bounds one remote job locally. It is advisory: the enclosing
	// stage deadline still cuts it off from outside.
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
}

// ScannersConfig enables and configures the individual scanner backends.
type ScannersConfig struct {
	Signature struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"signature" yaml:"signature"`
	CrawlScan RemoteScannerConfig `mapstructure:"crawlscan" yaml:"crawlscan"`
	SentryPro RemoteScannerConfig `mapstructure:"sentrypro" yaml:"sentrypro"`
	Heuristic struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"heuristic" yaml:"heuristic"`
}

// LLMConfig configures the optional summarizer collaborator.
type LLMConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Model      string        `mapstructure:"model" yaml:"model"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// SetDefaults registers every default on the given viper instance. Called
// before unmarshalling so a bare environment still yields a usable config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "bountyhound")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("http.request_timeout", 10*time.Second)
	v.SetDefault("http.max_idle_conns", 100)
	v.SetDefault("http.max_idle_conns_per_host", 20)
	v.SetDefault("http.max_conns_per_host", 50)
	v.SetDefault("http.requests_per_second", 10.0)
	v.SetDefault("http.burst", 5)

	v.SetDefault("pipeline.scan_timeout", 30*time.Second)
	v.SetDefault("pipeline.analyze_timeout", 40*time.Second)
	v.SetDefault("pipeline.report_timeout", 20*time.Second)
	v.SetDefault("pipeline.overall_timeout", 90*time.Second)

	v.SetDefault("scanners.signature.enabled", true)
	v.SetDefault("scanners.heuristic.enabled", true)
	v.SetDefault("scanners.crawlscan.enabled", false)
	v.SetDefault("scanners.crawlscan.endpoint", "http://127.0.0.1:8090")
	v.SetDefault("scanners.crawlscan.poll_interval", 2*time.Second)
	v.SetDefault("scanners.crawlscan.job_timeout", 120*time.Second)
	v.SetDefault("scanners.sentrypro.enabled", false)
	v.SetDefault("scanners.sentrypro.endpoint", "http://127.0.0.1:8091")
	v.SetDefault("scanners.sentrypro.poll_interval", 3*time.Second)
	v.SetDefault("scanners.sentrypro.job_timeout", 180*time.Second)

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_timeout", 30*time.Second)
}

// Load unmarshals and validates the configuration from the given viper
// instance.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would break the pipeline's timing
// assumptions.
func (c *Config) Validate() error {
	if c.Pipeline.OverallTimeout <= 0 {
		return fmt.Errorf("pipeline.overall_timeout must be positive, got %s", c.Pipeline.OverallTimeout)
	}
	if c.Pipeline.ScanTimeout <= 0 || c.Pipeline.AnalyzeTimeout <= 0 || c.Pipeline.ReportTimeout <= 0 {
		return fmt.Errorf("pipeline stage timeouts must be positive")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive, got %s", c.HTTP.RequestTimeout)
	}
	if c.HTTP.RequestsPerSecond <= 0 {
		return fmt.Errorf("http.requests_per_second must be positive, got %f", c.HTTP.RequestsPerSecond)
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required when the summarizer is enabled")
	}
	for name, rc := range map[string]RemoteScannerConfig{
		"scanners.crawlscan": c.Scanners.CrawlScan,
		"scanners.sentrypro": c.Scanners.SentryPro,
	} {
		if rc.Enabled && rc.Endpoint == "" {
			return fmt.Errorf("%s.endpoint is required when the scanner is enabled", name)
		}
		if rc.Enabled && rc.PollInterval <= 0 {
			return fmt.Errorf("%s.poll_interval must be positive", name)
		}
	}
	return nil
}
