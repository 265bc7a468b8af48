// Package config handles loading and validating chlens configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level chlens configuration.
type Config struct {
	Listen       string           `yaml:"listen"`
	DBPath       string           `yaml:"db_path"`
	RegistryPath string           `yaml:"registry_path"`
	LogLevel     string           `yaml:"log_level"`
	LogFormat    string           `yaml:"log_format"`
	Monitoring   MonitoringConfig `yaml:"monitoring"`
	Users        []UserConfig     `yaml:"users"`
}

// MonitoringConfig controls the snapshot collector and retention.
type MonitoringConfig struct {
	RetentionDays   int      `yaml:"retention_days"`
	CollectInterval Duration `yaml:"collect_interval"`
}

// UserConfig is one dashboard login. Password may be a bcrypt hash or, for
// hand-edited configs, a plaintext value.
type UserConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"` // "admin" or "user"
}

// Connection identifies one monitored ClickHouse server.
type Connection struct {
	Name     string `yaml:"name" json:"name"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	Database string `yaml:"database" json:"database"`
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. If no path is given, defaults
// plus environment overrides apply. If a path is given and the file does not
// exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.Monitoring.RetentionDays < 1 {
		return fmt.Errorf("monitoring.retention_days must be >= 1")
	}
	if c.Monitoring.CollectInterval.Duration < time.Minute {
		return fmt.Errorf("monitoring.collect_interval must be >= 1m")
	}
	for i, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("users[%d]: name is required", i)
		}
		if u.Password == "" {
			return fmt.Errorf("users[%d]: password is required", i)
		}
		if u.Role != "admin" && u.Role != "user" {
			return fmt.Errorf("users[%d]: role must be admin or user", i)
		}
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Listen:       ":3900",
		DBPath:       "/data/chlens.db",
		RegistryPath: "/data/connections.yml",
		LogLevel:     "info",
		LogFormat:    "text",
		Monitoring: MonitoringConfig{
			RetentionDays:   365,
			CollectInterval: Duration{1 * time.Hour},
		},
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHLENS_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("CHLENS_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CHLENS_REGISTRY_PATH"); v != "" {
		cfg.RegistryPath = v
	}
	if v := os.Getenv("CHLENS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHLENS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("CHLENS_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.RetentionDays = n
		}
	}
	if v := os.Getenv("CHLENS_COLLECT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitoring.CollectInterval = Duration{d}
		}
	}
}
