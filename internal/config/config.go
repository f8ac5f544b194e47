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
	Port           string
	FrontendURL    string
	AllowedOrigins []string
	DBPath         string
	SecretsDir     string
	PersonaPath    string // empty = embedded default persona
	Agent          AgentConfig
	Pages          PagesConfig
}

// AgentConfig holds non-secret remote agent service settings.
// Credentials are resolved through the secrets package.
type AgentConfig struct {
	BaseURL string
	AppID   string
	Timeout time.Duration // 0 = no timeout
}

// PagesConfig controls per-page widget state.
type PagesConfig struct {
	TTL            time.Duration
	SweepInterval  time.Duration
	DiagnosticsMax int // 0 = unbounded
	EventBuffer    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	eventBuffer := getEnvInt("EVENT_BUFFER", 64)
	if eventBuffer <= 0 {
		eventBuffer = 64
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		DBPath:         getEnv("DB_PATH", "./data/widget.db"),
		SecretsDir:     getEnv("SECRETS_DIR", "./data/secrets"),
		PersonaPath:    getEnv("PERSONA_PATH", ""),
		Agent: AgentConfig{
			BaseURL: getEnv("AGENT_BASE_URL", "https://builder.empromptu.ai/api_tools"),
			AppID:   getEnv("AGENT_APP_ID", ""),
			Timeout: getEnvDuration("AGENT_TIMEOUT", 0),
		},
		Pages: PagesConfig{
			TTL:            getEnvDuration("PAGE_TTL", 60*time.Minute),
			SweepInterval:  getEnvDuration("PAGE_SWEEP_INTERVAL", 5*time.Minute),
			DiagnosticsMax: getEnvInt("DIAGNOSTICS_MAX_RECORDS", 0),
			EventBuffer:    eventBuffer,
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
	if c.Agent.BaseURL == "" {
		return fmt.Errorf("AGENT_BASE_URL cannot be empty")
	}
	if c.Agent.Timeout < 0 {
		return fmt.Errorf("AGENT_TIMEOUT must be >= 0")
	}
	if c.Pages.TTL <= 0 {
		return fmt.Errorf("PAGE_TTL must be > 0")
	}
	if c.Pages.SweepInterval <= 0 {
		return fmt.Errorf("PAGE_SWEEP_INTERVAL must be > 0")
	}
	if c.Pages.DiagnosticsMax < 0 {
		return fmt.Errorf("DIAGNOSTICS_MAX_RECORDS must be >= 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
