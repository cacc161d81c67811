package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for socialscope
type Config struct {
	// Instagram session credentials
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// RapidAPI proxy settings
	ProxyAPI ProxyAPIConfig `yaml:"proxy_api" json:"proxy_api"`

	// Retry/backoff behavior for rate-limited strategies
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Result cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Durable search history settings
	History HistoryConfig `yaml:"history" json:"history"`

	// Batch lookup settings
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Telegram bot settings
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the Instagram session and scrape settings
type InstagramConfig struct {
	SessionID string `yaml:"session_id" json:"session_id"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// RequestsPerMinute paces anonymous scrape calls
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ProxyAPIConfig holds the RapidAPI key and per-platform hosts
type ProxyAPIConfig struct {
	Key              string        `yaml:"key" json:"key"`
	InstagramHost    string        `yaml:"instagram_host" json:"instagram_host"`
	TikTokHost       string        `yaml:"tiktok_host" json:"tiktok_host"`
	InstagramTimeout time.Duration `yaml:"instagram_timeout" json:"instagram_timeout"`
	TikTokTimeout    time.Duration `yaml:"tiktok_timeout" json:"tiktok_timeout"`
}

// RetryConfig holds the rate-limit retry parameters
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
}

// CacheConfig holds result cache parameters
type CacheConfig struct {
	InstagramTTL time.Duration `yaml:"instagram_ttl" json:"instagram_ttl"`
	TikTokTTL    time.Duration `yaml:"tiktok_ttl" json:"tiktok_ttl"`
	// SizeBytes is the freecache buffer size
	SizeBytes int `yaml:"size_bytes" json:"size_bytes"`
}

// HistoryConfig holds the durable history store settings
type HistoryConfig struct {
	File string `yaml:"file" json:"file"`
}

// BatchConfig holds batch lookup settings
type BatchConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// TelegramConfig holds the bot token
type TelegramConfig struct {
	Token string `yaml:"token" json:"token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestsPerMinute: 60,
		},
		ProxyAPI: ProxyAPIConfig{
			InstagramHost:    "instagram-scraper-api2.p.rapidapi.com",
			TikTokHost:       "tiktok-api23.p.rapidapi.com",
			InstagramTimeout: 10 * time.Second,
			TikTokTimeout:    12 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   10 * time.Second,
		},
		Cache: CacheConfig{
			InstagramTTL: time.Hour,
			TikTokTTL:    24 * time.Hour,
			SizeBytes:    8 * 1024 * 1024,
		},
		History: HistoryConfig{
			File: "./output/search_history.json",
		},
		Batch: BatchConfig{
			Workers: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if sessionID := os.Getenv("SOCIALSCOPE_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("SOCIALSCOPE_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("SOCIALSCOPE_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	// RAPIDAPI_KEY is the conventional name on Replit-style deploys,
	// keep supporting it next to the prefixed variant.
	if key := os.Getenv("SOCIALSCOPE_RAPIDAPI_KEY"); key != "" {
		c.ProxyAPI.Key = key
	} else if key := os.Getenv("RAPIDAPI_KEY"); key != "" {
		c.ProxyAPI.Key = key
	}

	if token := os.Getenv("SOCIALSCOPE_TELEGRAM_TOKEN"); token != "" {
		c.Telegram.Token = token
	} else if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		c.Telegram.Token = token
	}

	if historyFile := os.Getenv("SOCIALSCOPE_HISTORY_FILE"); historyFile != "" {
		c.History.File = historyFile
	}

	if workers := os.Getenv("SOCIALSCOPE_BATCH_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Batch.Workers = val
		}
	}

	if attempts := os.Getenv("SOCIALSCOPE_MAX_ATTEMPTS"); attempts != "" {
		var val int
		fmt.Sscanf(attempts, "%d", &val)
		if val > 0 {
			c.Retry.MaxAttempts = val
		}
	}

	if logLevel := os.Getenv("SOCIALSCOPE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".socialscope.yaml",
		".socialscope.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "socialscope", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "socialscope", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".socialscope.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}

	if c.Cache.InstagramTTL <= 0 || c.Cache.TikTokTTL <= 0 {
		errs = append(errs, errors.New("cache TTLs must be positive"))
	}
	if c.Cache.SizeBytes <= 0 {
		errs = append(errs, errors.New("cache size must be positive"))
	}

	if c.History.File == "" {
		errs = append(errs, errors.New("history file path is required"))
	}

	if c.Batch.Workers <= 0 {
		errs = append(errs, errors.New("batch workers must be positive"))
	}
	if c.Batch.Workers > 10 {
		errs = append(errs, errors.New("batch workers should not exceed 10"))
	}

	if c.ProxyAPI.InstagramTimeout <= 0 || c.ProxyAPI.TikTokTimeout <= 0 {
		errs = append(errs, errors.New("proxy API timeouts must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeFlags merges command line flag values into the configuration
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if key, ok := flags["rapidapi-key"].(string); ok && key != "" {
		c.ProxyAPI.Key = key
	}
	if token, ok := flags["telegram-token"].(string); ok && token != "" {
		c.Telegram.Token = token
	}
	if historyFile, ok := flags["history-file"].(string); ok && historyFile != "" {
		c.History.File = historyFile
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Batch.Workers = workers
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialscope.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
