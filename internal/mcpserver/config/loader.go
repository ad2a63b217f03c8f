package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a file path and applies environment variable overrides.
// File values are layered over DefaultConfig, so omitted keys keep their defaults.
// Validation is deferred to allow CLI flag overrides to be applied first
func Load(configPath string) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	// If config path is provided, load from file
	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Apply environment variable overrides
	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}

	// Note: Validation is NOT performed here to allow CLI flags to override
	// Call cfg.Validate() after applying CLI overrides in the caller

	return cfg, nil
}

// LoadFromEnvironment creates a configuration using only environment variables
// This is useful for containerized deployments where files may not be available
func LoadFromEnvironment() (*Config, error) {
	return Load("")
}

// loadFromFile decodes a JSON or YAML (.yaml/.yml) file into cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigFileNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return nil
}

// applyEnvironmentOverrides applies configuration from environment variables
func applyEnvironmentOverrides(cfg *Config) error {
	// Smartsheet API
	if apiURL := os.Getenv("SMARTSHEET_API_BASE_URL"); apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if token := os.Getenv("SMARTSHEET_API_TOKEN"); token != "" {
		cfg.APIToken = token
	}

	// Transport
	if addr := os.Getenv("MCP_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if transport := os.Getenv("MCP_TRANSPORT"); transport != "" {
		cfg.Transport = strings.ToLower(transport)
	}
	if secret := os.Getenv("MCP_JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	// Allowed origins (comma-separated list)
	if allowedOrigins := os.Getenv("MCP_ALLOWED_ORIGINS"); allowedOrigins != "" {
		cfg.AllowedOrigins = splitList(allowedOrigins)
	}

	// Workspace roots (comma-separated list)
	if roots := os.Getenv("MCP_WORKSPACE_ROOTS"); roots != "" {
		cfg.Workspace.Roots = splitList(roots)
	}

	// Rate limiting
	if err := envInt("MCP_RATE_LIMIT_PER_MINUTE", &cfg.RateLimit.PerMinute); err != nil {
		return err
	}
	if err := envInt("MCP_RATE_LIMIT_BURST", &cfg.RateLimit.Burst); err != nil {
		return err
	}

	// Dev mode
	if devMode := os.Getenv("MCP_DEV_MODE"); devMode == "true" || devMode == "1" {
		cfg.DevMode = true
	}

	// Debug mode
	if debug := os.Getenv("MCP_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}

	// Log level
	if logLevel := os.Getenv("MCP_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return nil
}

// splitList splits a comma-separated value, trimming whitespace and dropping empties
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envInt(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue, key, raw)
	}
	*dst = n
	return nil
}
