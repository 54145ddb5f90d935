// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	Timezone  string

	JobInterval      time.Duration
	ReminderInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APITokenHash string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
}

// Load reads FAIRSHARE_* variables, falling back to defaults. Malformed
// numbers and durations are reported by Validate, not here.
func Load() (Config, error) {
	cfg := Config{
		Port:            getEnv("FAIRSHARE_PORT", "8080"),
		DBPath:          getEnv("FAIRSHARE_DB_PATH", "fairshare.db"),
		LogLevel:        getEnv("FAIRSHARE_LOG_LEVEL", "info"),
		LogFormat:       getEnv("FAIRSHARE_LOG_FORMAT", "text"),
		Timezone:        getEnv("FAIRSHARE_TIMEZONE", "Local"),
		RedisAddr:       os.Getenv("FAIRSHARE_REDIS_ADDR"),
		RedisPassword:   os.Getenv("FAIRSHARE_REDIS_PASSWORD"),
		APITokenHash:    os.Getenv("FAIRSHARE_API_TOKEN_HASH"),
		VAPIDPublicKey:  os.Getenv("FAIRSHARE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("FAIRSHARE_VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("FAIRSHARE_VAPID_SUBJECT", "mailto:noreply@fairshare.local"),
	}

	var err error
	if cfg.JobInterval, err = getDuration("FAIRSHARE_JOB_INTERVAL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.ReminderInterval, err = getDuration("FAIRSHARE_REMINDER_INTERVAL", time.Minute); err != nil {
		return cfg, err
	}
	if v := os.Getenv("FAIRSHARE_REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("FAIRSHARE_REDIS_DB: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.JobInterval <= 0 {
		errs = append(errs, fmt.Errorf("job interval must be positive, got %s", c.JobInterval))
	}
	if c.ReminderInterval <= 0 {
		errs = append(errs, fmt.Errorf("reminder interval must be positive, got %s", c.ReminderInterval))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("redis db must not be negative, got %d", c.RedisDB))
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("VAPID public and private keys must be set together"))
	}
	return errors.Join(errs...)
}

// Location resolves the household time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PushEnabled reports whether reminder delivery is configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
