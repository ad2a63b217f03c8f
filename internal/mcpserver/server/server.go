package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/config"
	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/tools"
	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// maxRequestBytes bounds a single JSON-RPC message body
const maxRequestBytes = 4 << 20

// MCPServer is the Streamable HTTP MCP server
type MCPServer struct {
	config     *config.Config
	httpServer *http.Server
	auth       *Authenticator
	limiter    *RateLimiter
	sessionMgr *SessionManager
	rpc        *rpcHandler
	router     http.Handler
}

// NewMCPServer creates a new MCP server around a sealed tool registry
func NewMCPServer(cfg *config.Config, registry *tools.Registry, api smartsheet.API, workspace *tools.Workspace) *MCPServer {
	s := &MCPServer{
		config:     cfg,
		auth:       NewAuthenticator(cfg.JWTSecret, cfg.DevMode),
		limiter:    NewRateLimiter(cfg.RateLimit),
		sessionMgr: NewSessionManager(config.SessionTTL()),
		rpc:        newRPCHandler(registry, api, workspace),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving /mcp and /healthz
func (s *MCPServer) Handler() http.Handler {
	return s.router
}

// Sessions exposes the session manager
func (s *MCPServer) Sessions() *SessionManager {
	return s.sessionMgr
}

func (s *MCPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Recoverer)

	// Health check (unauthenticated)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.originMiddleware)
		r.Use(s.auth.Middleware)
		r.Use(s.limiter.Middleware)

		r.Post("/mcp", s.handleMCPPost)
		r.Delete("/mcp", s.handleMCPDelete)
	})

	return r
}

// Start serves HTTP on the configured listen address until Shutdown
func (s *MCPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	log.Info().Str("addr", s.config.ListenAddr).Msg("Starting MCP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and its background loops
func (s *MCPServer) Shutdown(ctx context.Context) error {
	defer s.sessionMgr.Close()
	defer s.limiter.Close()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleMCPPost handles POST /mcp (JSON-RPC requests and notifications)
func (s *MCPServer) handleMCPPost(w http.ResponseWriter, r *http.Request) {
	if v := r.Header.Get("Mcp-Protocol-Version"); v != "" && !isSupportedVersion(v) {
		http.Error(w, "unsupported protocol version", http.StatusBadRequest)
		return
	}

	userID := UserID(r.Context())

	var req JSONRPCRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeResponse(w, http.StatusOK, newError(nil, ParseError, "invalid JSON", nil))
		return
	}

	if req.JSONRPC != "2.0" {
		writeResponse(w, http.StatusOK, newError(req.ID, InvalidRequest, "invalid jsonrpc version", nil))
		return
	}
	if req.Method == "" {
		writeResponse(w, http.StatusOK, newError(req.ID, InvalidRequest, "missing method", nil))
		return
	}

	// Handle initialize specially (creates session)
	if req.Method == "initialize" {
		s.handleInitialize(w, r, &req, userID)
		return
	}

	// All other requests require session
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		writeResponse(w, http.StatusOK, newError(req.ID, InvalidRequest, "missing Mcp-Session-Id header", nil))
		return
	}

	session, err := s.sessionMgr.GetSession(sessionID)
	if err != nil {
		writeResponse(w, http.StatusOK, newError(req.ID, InvalidRequest, "session not found", nil))
		return
	}

	// Verify session belongs to this user
	if session.UserID != userID {
		writeResponse(w, http.StatusOK, newError(req.ID, InvalidRequest, "session user mismatch", nil))
		return
	}

	s.sessionMgr.UpdateLastSeen(sessionID)

	resp := s.rpc.handle(r.Context(), &req, session)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeResponse(w, http.StatusOK, resp)
}

// handleInitialize creates a session and returns its ID in the Mcp-Session-Id header
func (s *MCPServer) handleInitialize(w http.ResponseWriter, r *http.Request, req *JSONRPCRequest, userID string) {
	if req.IsNotification() {
		writeResponse(w, http.StatusOK, newError(nil, InvalidRequest, "initialize must be a request", nil))
		return
	}

	params := parseInitialize(req.Params)
	version := negotiateVersion(params.ProtocolVersion)
	session := s.sessionMgr.CreateSession(userID, version, params.ClientInfo.Name)

	log.Ctx(r.Context()).Info().
		Str("sessionId", session.ID).
		Str("protocolVersion", version).
		Str("client", params.ClientInfo.Name).
		Msg("Created new MCP session")

	w.Header().Set("Mcp-Session-Id", session.ID)
	writeResponse(w, http.StatusOK, newResult(req.ID, initializeResult(version)))
}

// handleMCPDelete handles DELETE /mcp (close session)
func (s *MCPServer) handleMCPDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "missing session ID", http.StatusBadRequest)
		return
	}

	session, err := s.sessionMgr.GetSession(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if session.UserID != UserID(r.Context()) {
		http.Error(w, "session user mismatch", http.StatusForbidden)
		return
	}

	s.sessionMgr.DeleteSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// originMiddleware rejects requests whose Origin header is not allow-listed
// (DNS rebinding protection)
func (s *MCPServer) originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.validateOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateOrigin checks the Origin header against the allow-list.
// Requests without Origin (curl, server-to-server) pass; browsers always send it.
func (s *MCPServer) validateOrigin(r *http.Request) bool {
	if s.config.DevMode || len(s.config.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}

	log.Ctx(r.Context()).Warn().
		Str("origin", origin).
		Strs("allowedOrigins", s.config.AllowedOrigins).
		Msg("Origin not in allowlist")
	return false
}

// writeResponse writes a JSON-RPC response with the given status code.
// JSON-RPC errors are still HTTP 200 unless the transport itself refuses the request.
func writeResponse(w http.ResponseWriter, status int, resp *JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode json-rpc response")
	}
}
