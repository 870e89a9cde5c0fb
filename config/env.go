package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvString returns the environment variable and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok
}

// EnvInt parses an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool parses a boolean environment variable.
func EnvBool(key string) (bool, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, true, nil
}

// EnvSeconds parses a float environment variable expressed in seconds.
func EnvSeconds(key string) (time.Duration, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number of seconds: %w", key, err)
	}
	return secondsToDuration(parsed), true, nil
}

// ApplyEnv overlays SCRAPER_* environment variables on cfg.
func ApplyEnv(cfg *Config) error {
	if value, ok := EnvString("SCRAPER_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := EnvString("SCRAPER_DATA_DIR"); ok {
		cfg.DataDir = value
	}
	if value, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok, err := EnvInt("SCRAPER_MAX_PAGES"); err != nil {
		return err
	} else if ok {
		cfg.MaxPages = value
	}
	if value, ok, err := EnvInt("SCRAPER_MAX_RETRIES"); err != nil {
		return err
	} else if ok {
		cfg.MaxRetries = value
	}
	if value, ok, err := EnvSeconds("SCRAPER_RATE_LIMIT"); err != nil {
		return err
	} else if ok {
		cfg.RateLimit = value
	}
	if value, ok, err := EnvBool("SCRAPER_FULL_DETAILS"); err != nil {
		return err
	} else if ok {
		cfg.FollowDetailLinks = value
	}
	return nil
}
