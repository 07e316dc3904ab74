// Package config loads monitor settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values applied when the environment leaves settings unset.
const (
	DefaultInterval          = 5 * time.Minute
	DefaultMinScore          = 60
	DefaultMinConfidence     = 65
	DefaultMaxBatch          = 10
	DefaultSuppressionWindow = time.Hour
	DefaultAdvisoryMode      = "auto"
	DefaultMetricsAddr       = ":9090"
	DefaultLogLevel          = "info"
)

// Config holds every runtime setting of the monitor.
type Config struct {
	// Scan loop
	Interval          time.Duration
	Chains            []string
	MinScore          int
	MinConfidence     int
	MaxBatch          int
	SuppressionWindow time.Duration

	// Advisory
	AdvisoryMode string // auto | rules | backend name
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModel     string

	// Providers
	BirdeyeAPIKey string

	// Notification
	TelegramBotToken string
	TelegramChatID   string

	// Storage; empty DSNs select in-memory stores
	PostgresDSN   string
	ClickhouseDSN string

	// Observability
	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Chains:           splitList(os.Getenv("CHAINS")),
		AdvisoryMode:     os.Getenv("ADVISORY_MODE"),
		LLMBaseURL:       os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMModel:         os.Getenv("LLM_MODEL"),
		BirdeyeAPIKey:    os.Getenv("BIRDEYE_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN:    os.Getenv("CLICKHOUSE_DSN"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
	}

	var err error
	if cfg.Interval, err = envDuration("SCAN_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.SuppressionWindow, err = envDuration("SUPPRESSION_WINDOW"); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = envInt("MIN_SCORE"); err != nil {
		return nil, err
	}
	if cfg.MinConfidence, err = envInt("MIN_CONFIDENCE"); err != nil {
		return nil, err
	}
	if cfg.MaxBatch, err = envInt("MAX_BATCH"); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if len(c.Chains) == 0 {
		c.Chains = []string{"solana"}
	}
	if c.MinScore <= 0 {
		c.MinScore = DefaultMinScore
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.SuppressionWindow <= 0 {
		c.SuppressionWindow = DefaultSuppressionWindow
	}
	if c.AdvisoryMode == "" {
		c.AdvisoryMode = DefaultAdvisoryMode
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func (c *Config) validate() error {
	if c.MinScore > 100 {
		return fmt.Errorf("MIN_SCORE must be 0-100, got %d", c.MinScore)
	}
	if c.MinConfidence > 100 {
		return fmt.Errorf("MIN_CONFIDENCE must be 0-100, got %d", c.MinConfidence)
	}
	if c.Interval < time.Second {
		return fmt.Errorf("SCAN_INTERVAL too short: %s", c.Interval)
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if c.LLMBaseURL != "" && c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required when LLM_BASE_URL is set")
	}
	return nil
}

// LLMEnabled reports whether a delegated advisory backend is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMBaseURL != "" && c.LLMModel != ""
}

// TelegramEnabled reports whether the telegram channel is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
