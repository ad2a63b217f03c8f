package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/config"
	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/server"
	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/tools"
	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file (JSON or YAML)")
	showVersion = flag.Bool("version", false, "Show version information")
	devMode     = flag.Bool("dev", false, "Enable development mode (in-memory Smartsheet, X-Debug-Sub header)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	transport   = flag.String("transport", "", "Transport to serve (http, stdio)")
	listenAddr  = flag.String("listen", "", "HTTP listen address")
	workspace   = flag.String("workspace", "", "Comma-separated directories attachments may be read from or written to")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("smartsheet-mcp version %s\n", server.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	log.Info().
		Str("version", server.Version).
		Str("apiBaseUrl", cfg.APIBaseURL).
		Str("transport", cfg.Transport).
		Bool("devMode", cfg.DevMode).
		Bool("debug", cfg.Debug).
		Msg("Starting Smartsheet MCP server")

	if cfg.DevMode {
		log.Warn().Msg("Dev mode is enabled - using the in-memory Smartsheet backend and X-Debug-Sub authentication")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
		os.Exit(1)
	}

	log.Info().Msg("Smartsheet MCP server stopped gracefully")
}

// loadConfig loads the configuration from file and environment, then applies CLI flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	applyFlags(cfg, flagOverrides{
		devMode:    *devMode,
		debug:      *debug,
		logLevel:   *logLevel,
		transport:  *transport,
		listenAddr: *listenAddr,
		workspace:  *workspace,
	})

	// Validate AFTER applying CLI overrides so --dev can skip credentials
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

type flagOverrides struct {
	devMode    bool
	debug      bool
	logLevel   string
	transport  string
	listenAddr string
	workspace  string
}

func applyFlags(cfg *config.Config, f flagOverrides) {
	if f.devMode {
		cfg.DevMode = true
	}
	if f.debug {
		cfg.Debug = true
		// --debug implies debug level unless a level was given explicitly
		if f.logLevel == "info" {
			cfg.LogLevel = "debug"
		}
	}
	if f.logLevel != "" && f.logLevel != "info" {
		cfg.LogLevel = f.logLevel
	}
	if f.transport != "" {
		cfg.Transport = strings.ToLower(f.transport)
	}
	if f.listenAddr != "" {
		cfg.ListenAddr = f.listenAddr
	}
	if f.workspace != "" {
		cfg.Workspace.Roots = nil
		for _, root := range strings.Split(f.workspace, ",") {
			if root = strings.TrimSpace(root); root != "" {
				cfg.Workspace.Roots = append(cfg.Workspace.Roots, root)
			}
		}
	}
}

// setupLogging configures the global logger. Logs always go to stderr so the
// stdio transport keeps stdout for protocol messages.
func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// newAPI selects the Smartsheet backend
func newAPI(cfg *config.Config) smartsheet.API {
	if cfg.DevMode {
		log.Info().Msg("Using in-memory Smartsheet backend")
		return smartsheet.NewMock()
	}
	return smartsheet.NewClient(cfg.APIBaseURL, cfg.APIToken)
}

// run wires the registry and serves the configured transport until ctx is done
func run(ctx context.Context, cfg *config.Config) error {
	ws, err := tools.NewWorkspace(cfg.Workspace.Roots)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	log.Info().Strs("roots", ws.Roots()).Msg("Workspace sandbox ready")

	registry := tools.BuildRegistry()
	api := newAPI(cfg)

	log.Info().Int("tools", registry.Len()).Msg("Tool registry built")

	if cfg.Transport == config.TransportStdio {
		err := server.NewStdioServer(registry, api, ws).Serve(ctx, os.Stdin, os.Stdout)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	srv := server.NewMCPServer(cfg, registry, api, ws)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down MCP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
