// Package config loads the domguard daemon's YAML configuration.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all domguard daemon configuration.
type Config struct {
	DBPath        string              `yaml:"db_path"`
	LogLevel      string              `yaml:"log_level"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Calibrator    CalibratorConfig    `yaml:"calibrator"`
	Parser        ParserConfig        `yaml:"parser"`
	Admin         AdminConfig         `yaml:"admin"`
	EmailNotifier EmailNotifierConfig `yaml:"email_notifier"`
}

// SchedulerConfig controls the scheduler's cadence and worker pool.
type SchedulerConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// CalibratorConfig controls the dynamic-page sampling protocol.
type CalibratorConfig struct {
	Samples       int           `yaml:"samples"`
	SampleSpacing time.Duration `yaml:"sample_spacing"`
	SafetyMargin  float64       `yaml:"safety_margin"`
}

// ParserConfig controls DOM fetching.
type ParserConfig struct {
	// Backend selects the fetcher: "rod" (headless Chrome via go-rod) or
	// "exec" (chromium --headless --dump-dom subprocess).
	Backend         string        `yaml:"backend"`
	Binary          string        `yaml:"binary"`
	RemoteURL       string        `yaml:"remote_url"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
}

// AdminConfig controls the read-only HTTP admin surface.
type AdminConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// EmailNotifierConfig points at the TOML file holding SMTP credentials.
type EmailNotifierConfig struct {
	ConfigPath string `yaml:"config_path"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "domguard.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Scheduler.TickInterval <= 0 {
		c.Scheduler.TickInterval = time.Second
	}
	if c.Scheduler.CheckInterval <= 0 {
		c.Scheduler.CheckInterval = 60 * time.Minute
	}
	if c.Scheduler.MaxConcurrency <= 0 {
		c.Scheduler.MaxConcurrency = 8
	}
	if c.Calibrator.Samples <= 0 {
		c.Calibrator.Samples = 10
	}
	if c.Calibrator.SampleSpacing <= 0 {
		c.Calibrator.SampleSpacing = time.Second
	}
	if c.Calibrator.SafetyMargin <= 0 {
		c.Calibrator.SafetyMargin = 1.3
	}
	if c.Parser.Backend == "" {
		c.Parser.Backend = "rod"
	}
	if c.Parser.Binary == "" {
		c.Parser.Binary = "chromium"
	}
	if c.Parser.FetchTimeout <= 0 {
		c.Parser.FetchTimeout = 30 * time.Second
	}
	if c.Parser.RecycleInterval <= 0 {
		c.Parser.RecycleInterval = 4 * time.Hour
	}
	if c.Admin.ListenAddr == "" {
		c.Admin.ListenAddr = "127.0.0.1:8642"
	}
}

// LoadConfigFile reads a YAML config file and fills in defaults for any
// field the file left zero-valued.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}
