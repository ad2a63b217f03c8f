package config

import (
	"strings"
	"time"
)

// Transports supported by the server
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// DefaultAPIBaseURL is the Smartsheet REST API 2.0 endpoint
const DefaultAPIBaseURL = "https://api.smartsheet.com/2.0"

// Config holds all configuration for the Smartsheet MCP server
type Config struct {
	APIBaseURL     string          `json:"apiBaseUrl" yaml:"apiBaseUrl"`
	APIToken       string          `json:"apiToken" yaml:"apiToken"`
	ListenAddr     string          `json:"listenAddr" yaml:"listenAddr"`
	Transport      string          `json:"transport" yaml:"transport"`
	JWTSecret      string          `json:"jwtSecret" yaml:"jwtSecret"`
	AllowedOrigins []string        `json:"allowedOrigins" yaml:"allowedOrigins"`
	Workspace      WorkspaceConfig `json:"workspace" yaml:"workspace"`
	RateLimit      RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
	Debug          bool            `json:"debug" yaml:"debug"`
	DevMode        bool            `json:"devMode" yaml:"devMode"` // in-memory Smartsheet mock, X-Debug-Sub auth
	LogLevel       string          `json:"logLevel" yaml:"logLevel"`
}

// WorkspaceConfig lists the directories tools may read and write files in
type WorkspaceConfig struct {
	Roots []string `json:"roots,omitempty" yaml:"roots,omitempty"`
}

// RateLimitConfig is the per-user token bucket applied to /mcp
type RateLimitConfig struct {
	PerMinute int `json:"perMinute" yaml:"perMinute"`
	Burst     int `json:"burst" yaml:"burst"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}

	switch c.Transport {
	case TransportHTTP, TransportStdio:
	default:
		return ErrInvalidTransport
	}

	if !c.DevMode {
		if c.APIToken == "" {
			return ErrMissingAPIToken
		}
		if c.Transport == TransportHTTP && c.JWTSecret == "" {
			return ErrMissingJWTSecret
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL: DefaultAPIBaseURL,
		ListenAddr: ":8082",
		Transport:  TransportHTTP,
		Debug:      false,
		DevMode:    false,
		LogLevel:   "info",
		Workspace: WorkspaceConfig{
			Roots: []string{},
		},
		AllowedOrigins: []string{},
		RateLimit: RateLimitConfig{
			PerMinute: 300, // Smartsheet's own per-token quota
			Burst:     60,
		},
	}
}

// SessionTTL is how long an idle MCP session is kept
func SessionTTL() time.Duration {
	return 24 * time.Hour
}
