package config

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration. The same file
// configures the fleetctl console and the fleetd-dev reference backend.
type Config struct {
	API          APIConfig          `yaml:"api"`
	Session      SessionConfig      `yaml:"session"`
	Console      ConsoleConfig      `yaml:"console"`
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Bootstrap    BootstrapConfig    `yaml:"bootstrap"`
}

// APIConfig describes how the console reaches the backend.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
	HTTPProxy      string        `yaml:"http_proxy"`
}

// SessionConfig holds where the session token is persisted.
type SessionConfig struct {
	File string `yaml:"file"`
}

// ConsoleConfig holds view-state timings.
type ConsoleConfig struct {
	NoticeSeconds int              `yaml:"notice_seconds"`
	NoticeTTL     time.Duration    `yaml:"-"`
	DeviceSettle  DeviceSettleConf `yaml:"device_settle"`
}

// DeviceSettleConf bounds the polling used to observe queued device operations.
type DeviceSettleConf struct {
	InitialDelayMillis int           `yaml:"initial_delay_ms"`
	IntervalMillis     int           `yaml:"interval_ms"`
	MaxAttempts        int           `yaml:"max_attempts"`
	InitialDelay       time.Duration `yaml:"-"`
	Interval           time.Duration `yaml:"-"`
}

// ServerConfig holds the reference backend's HTTP configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// ProvisioningConfig holds the configuration for the device job worker pool.
type ProvisioningConfig struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	DelayMillis int           `yaml:"delay_ms"`
	Delay       time.Duration `yaml:"-"`
}

// BootstrapConfig is the admin account created on first start.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(log.New(io.Discard, "", 0))
	return cfg
}

// Load reads the configuration from the given path. A missing file is not an
// error when allowMissing is set; defaults are used instead.
func Load(path string, allowMissing bool) (*Config, error) {
	return LoadWithLogger(path, allowMissing, log.Default())
}

// LoadWithLogger is Load with notes about missing files and defaulted
// settings written to logger.
func LoadWithLogger(path string, allowMissing bool, logger *log.Logger) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		logger.Printf("config file %s not found; using defaults", path)
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults(logger)
	return &cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("FLEET_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("FLEET_SESSION_FILE"); v != "" {
		cfg.Session.File = v
	}
	if v := os.Getenv("FLEET_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

func (cfg *Config) applyDefaults(logger *log.Logger) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 30
	}
	cfg.API.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second

	if cfg.Session.File == "" {
		cfg.Session.File = defaultSessionFile()
	}

	if cfg.Console.NoticeSeconds <= 0 {
		cfg.Console.NoticeSeconds = 3
	}
	cfg.Console.NoticeTTL = time.Duration(cfg.Console.NoticeSeconds) * time.Second

	settle := &cfg.Console.DeviceSettle
	if settle.InitialDelayMillis <= 0 {
		settle.InitialDelayMillis = 2000
	}
	if settle.IntervalMillis <= 0 {
		settle.IntervalMillis = 2000
	}
	if settle.MaxAttempts <= 0 {
		settle.MaxAttempts = 5
	}
	settle.InitialDelay = time.Duration(settle.InitialDelayMillis) * time.Millisecond
	settle.Interval = time.Duration(settle.IntervalMillis) * time.Millisecond

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.TokenTTLMinutes <= 0 {
		cfg.Server.TokenTTLMinutes = 12 * 60
	}
	cfg.Server.TokenTTL = time.Duration(cfg.Server.TokenTTLMinutes) * time.Minute

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:fleet.db"
	}

	if cfg.Provisioning.Workers <= 0 {
		logger.Printf("provisioning.workers is not set or invalid; defaulting to 1")
		cfg.Provisioning.Workers = 1
	}
	if cfg.Provisioning.QueueSize <= 0 {
		cfg.Provisioning.QueueSize = 64
	}
	if cfg.Provisioning.DelayMillis < 0 {
		cfg.Provisioning.DelayMillis = 0
	}
	cfg.Provisioning.Delay = time.Duration(cfg.Provisioning.DelayMillis) * time.Millisecond

	if cfg.Bootstrap.AdminUsername == "" {
		cfg.Bootstrap.AdminUsername = "admin"
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".fleet-session.json"
	}
	return filepath.Join(dir, "fleet-admin", "session.json")
}
