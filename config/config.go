// Package config holds pipeline configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds crawl pipeline configuration.
type Config struct {
	BaseURL           string
	RateLimit         time.Duration // politeness delay before every request
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	RetryableStatuses []int
	MaxPages          int // 0 means walk the full catalog
	CategoryPageLimit int // hard ceiling for the next-link category walk
	FollowDetailLinks bool
	DataDir           string
	DedupeMaxSize     int
	UserAgents        []string
	MetricsAddr       string
	Verbose           bool
}

// DefaultConfig returns the defaults used against the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://books.toscrape.com",
		RateLimit:         time.Second,
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
		RetryBackoffMax:   30 * time.Second,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
		MaxPages:          0,
		CategoryPageLimit: 100,
		FollowDetailLinks: false,
		DataDir:           "data",
		DedupeMaxSize:     4096,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		},
		MetricsAddr: "",
		Verbose:     false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.CategoryPageLimit <= 0 {
		return fmt.Errorf("category page limit must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe cache size must be positive")
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("user agent pool cannot be empty")
	}
	return nil
}

// fileConfig mirrors Config for the TOML file. Durations are expressed in
// seconds so the file stays human-editable.
type fileConfig struct {
	BaseURL           *string   `toml:"base_url"`
	RateLimitSeconds  *float64  `toml:"rate_limit_seconds"`
	TimeoutSeconds    *float64  `toml:"timeout_seconds"`
	MaxRetries        *int      `toml:"max_retries"`
	BackoffSeconds    *float64  `toml:"retry_backoff_seconds"`
	BackoffMaxSeconds *float64  `toml:"retry_backoff_max_seconds"`
	MaxPages          *int      `toml:"max_pages"`
	CategoryPageLimit *int      `toml:"category_page_limit"`
	FollowDetailLinks *bool     `toml:"follow_detail_links"`
	DataDir           *string   `toml:"data_dir"`
	DedupeMaxSize     *int      `toml:"dedupe_max_size"`
	UserAgents        []string  `toml:"user_agents"`
	MetricsAddr       *string   `toml:"metrics_addr"`
}

// LoadFile applies settings from a TOML file on top of cfg. Absent keys
// leave the existing values untouched.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.BaseURL != nil {
		cfg.BaseURL = *fc.BaseURL
	}
	if fc.RateLimitSeconds != nil {
		cfg.RateLimit = secondsToDuration(*fc.RateLimitSeconds)
	}
	if fc.TimeoutSeconds != nil {
		cfg.Timeout = secondsToDuration(*fc.TimeoutSeconds)
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.BackoffSeconds != nil {
		cfg.RetryBackoff = secondsToDuration(*fc.BackoffSeconds)
	}
	if fc.BackoffMaxSeconds != nil {
		cfg.RetryBackoffMax = secondsToDuration(*fc.BackoffMaxSeconds)
	}
	if fc.MaxPages != nil {
		cfg.MaxPages = *fc.MaxPages
	}
	if fc.CategoryPageLimit != nil {
		cfg.CategoryPageLimit = *fc.CategoryPageLimit
	}
	if fc.FollowDetailLinks != nil {
		cfg.FollowDetailLinks = *fc.FollowDetailLinks
	}
	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.DedupeMaxSize != nil {
		cfg.DedupeMaxSize = *fc.DedupeMaxSize
	}
	if len(fc.UserAgents) > 0 {
		cfg.UserAgents = fc.UserAgents
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
