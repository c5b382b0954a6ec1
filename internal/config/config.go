// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port                 string
	FrontendURL          string
	DBPath               string
	ProfileTTL           time.Duration
	InterviewIdleTimeout time.Duration
	MaxRequestBodySize   int64
	Notion               NotionConfig
	Gemini               GeminiConfig
	RateLimit            RateLimitConfig
}

// NotionConfig holds the public integration credentials and API endpoints.
// Credentials are optional at startup; handlers report them missing per request.
type NotionConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Version      string
	Timeout      time.Duration
}

// GeminiConfig controls the hosted model used for interviews and grading.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// RateLimitConfig bounds model-backed requests per profile.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("API_KEY", "")
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		FrontendURL:          getEnv("FRONTEND_URL", ""),
		DBPath:               getEnv("DB_PATH", "./data/mockdy.db"),
		ProfileTTL:           getEnvDuration("PROFILE_TTL", 30*24*time.Hour),
		InterviewIdleTimeout: getEnvDuration("INTERVIEW_IDLE_TIMEOUT", 2*time.Hour),
		MaxRequestBodySize:   int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		Notion: NotionConfig{
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("OAUTH_REDIRECT_URI", ""),
			AuthURL:      getEnv("NOTION_AUTH_URL", "https://api.notion.com/v1/oauth/authorize"),
			TokenURL:     getEnv("NOTION_TOKEN_URL", "https://api.notion.com/v1/oauth/token"),
			APIURL:       strings.TrimRight(getEnv("NOTION_API_URL", "https://api.notion.com/v1"), "/"),
			Version:      getEnv("NOTION_VERSION", "2022-06-28"),
			Timeout:      getEnvDuration("NOTION_TIMEOUT", 30*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:      apiKey,
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: float32(getEnvFloat("GEMINI_TEMPERATURE", 0.7)),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_RPM", 60),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.Notion.AuthURL == "" || c.Notion.TokenURL == "" || c.Notion.APIURL == "" {
		return fmt.Errorf("notion endpoints cannot be empty")
	}
	if c.Notion.Version == "" {
		return fmt.Errorf("NOTION_VERSION cannot be empty")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must be >= 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AIEnabled reports whether a model API key is configured.
func (c *Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}

// NotionEnabled reports whether the Notion OAuth credentials are all present.
func (c *Config) NotionEnabled() bool {
	return c.Notion.ClientID != "" && c.Notion.ClientSecret != "" && c.Notion.RedirectURI != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
