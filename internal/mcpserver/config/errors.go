package config

import "errors"

var (
	// ErrMissingAPIBaseURL indicates that the Smartsheet API base URL is not configured
	ErrMissingAPIBaseURL = errors.New("apiBaseUrl is required in configuration")

	// ErrMissingAPIToken indicates that no Smartsheet access token is configured
	ErrMissingAPIToken = errors.New("apiToken (SMARTSHEET_API_TOKEN) is required when not in dev mode")

	// ErrMissingJWTSecret indicates that the HTTP transport has no way to authenticate callers
	ErrMissingJWTSecret = errors.New("jwtSecret (MCP_JWT_SECRET) is required for the http transport when not in dev mode")

	// ErrInvalidTransport indicates an unknown transport name
	ErrInvalidTransport = errors.New("transport must be \"http\" or \"stdio\"")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("logLevel must be one of debug, info, warn, error")

	// ErrInvalidRateLimit indicates a non-positive rate limit
	ErrInvalidRateLimit = errors.New("rateLimit.perMinute and rateLimit.burst must be positive")

	// ErrInvalidEnvValue indicates an environment variable that could not be parsed
	ErrInvalidEnvValue = errors.New("invalid environment variable value")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file could not be decoded
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)
