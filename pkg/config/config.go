package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	harvesterrors "slackharvest/pkg/errors"
)

// Config holds all configuration options for the exporter
type Config struct {
	// Slack credentials and target channel
	Slack SlackConfig `yaml:"slack" json:"slack"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Worker pool settings
	Workers WorkersConfig `yaml:"workers" json:"workers"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SlackConfig holds Slack-specific configuration
type SlackConfig struct {
	Token     string `yaml:"token" json:"token"`
	Cookie    string `yaml:"cookie" json:"cookie"`
	Channel   string `yaml:"channel" json:"channel"`
	PageLimit int    `yaml:"page_limit" json:"page_limit"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	// PageInterval is the minimum gap between successive pages of one
	// listing, applied even before the server signals throttling.
	PageInterval time.Duration `yaml:"page_interval" json:"page_interval"`

	// ThrottleFallback is the wait applied when a 429 arrives without a
	// Retry-After header.
	ThrottleFallback time.Duration `yaml:"throttle_fallback" json:"throttle_fallback"`
}

// WorkersConfig holds worker pool configuration
type WorkersConfig struct {
	Concurrency  int           `yaml:"concurrency" json:"concurrency"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	ThreadsFile  string `yaml:"threads_file" json:"threads_file"`
	RepliesFile  string `yaml:"replies_file" json:"replies_file"`
	ProgressFile string `yaml:"progress_file" json:"progress_file"`
	CSVFile      string `yaml:"csv_file" json:"csv_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Slack: SlackConfig{
			PageLimit: 1000,
		},
		RateLimit: RateLimitConfig{
			PageInterval:     time.Second,
			ThrottleFallback: 10 * time.Second,
		},
		Workers: WorkersConfig{
			Concurrency:  5,
			FetchTimeout: 30 * time.Second,
		},
		Output: OutputConfig{
			Directory:    ".",
			ThreadsFile:  "threads.json",
			RepliesFile:  "replies.json",
			ProgressFile: "progress.json",
			CSVFile:      "threads.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables. The
// credential names match the original export tooling's config keys.
func (c *Config) LoadFromEnv() {
	if token := os.Getenv("SLACK_TOKEN"); token != "" {
		c.Slack.Token = token
	}
	if cookie := os.Getenv("SLACK_COOKIE"); cookie != "" {
		c.Slack.Cookie = cookie
	}
	if channel := os.Getenv("CHANNEL_ID"); channel != "" {
		c.Slack.Channel = channel
	}
	if limit := os.Getenv("SLACKHARVEST_PAGE_LIMIT"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 {
			c.Slack.PageLimit = val
		}
	}
	if workers := os.Getenv("SLACKHARVEST_CONCURRENCY"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil && val > 0 {
			c.Workers.Concurrency = val
		}
	}
	if dir := os.Getenv("SLACKHARVEST_OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if level := os.Getenv("SLACKHARVEST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".slackharvest.yaml",
		".slackharvest.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "slackharvest", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".slackharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credential problems are
// fatal and reported before any network activity.
func (c *Config) Validate() error {
	var errs []error

	if c.Slack.Token == "" {
		errs = append(errs, errors.New("slack token is required (SLACK_TOKEN)"))
	}
	if c.Slack.Channel == "" {
		errs = append(errs, errors.New("channel id is required (CHANNEL_ID)"))
	}
	if c.Slack.PageLimit <= 0 {
		errs = append(errs, errors.New("page limit must be positive"))
	}
	if c.Workers.Concurrency <= 0 {
		errs = append(errs, errors.New("worker concurrency must be positive"))
	}
	if c.Workers.Concurrency > 10 {
		errs = append(errs, errors.New("worker concurrency should not exceed 10"))
	}
	if c.RateLimit.PageInterval < 0 {
		errs = append(errs, errors.New("page interval cannot be negative"))
	}
	if c.RateLimit.ThrottleFallback <= 0 {
		errs = append(errs, errors.New("throttle fallback must be positive"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return harvesterrors.New(harvesterrors.TypeConfig, errors.Join(errs...).Error(), 0)
	}

	return nil
}

// MergeFlags merges command line flag values into the configuration
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Slack.Token = token
	}
	if cookie, ok := flags["cookie"].(string); ok && cookie != "" {
		c.Slack.Cookie = cookie
	}
	if channel, ok := flags["channel"].(string); ok && channel != "" {
		c.Slack.Channel = channel
	}
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if workers, ok := flags["concurrency"].(int); ok && workers > 0 {
		c.Workers.Concurrency = workers
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".slackharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config.LoadFromEnv()
	config.MergeFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
