package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/config"
	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/tools"
	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/golang-jwt/jwt/v5"
)

// newTestServer builds a server backed by the in-memory Smartsheet mock.
// mutate may adjust the config before the server is constructed.
func newTestServer(t *testing.T, mutate func(*config.Config)) *MCPServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.JWTSecret = testSecret
	cfg.APIToken = "unused"
	if mutate != nil {
		mutate(cfg)
	}

	ws, err := tools.NewWorkspace([]string{t.TempDir()})
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	s := NewMCPServer(cfg, tools.BuildRegistry(), smartsheet.NewMock(), ws)
	t.Cleanup(func() {
		s.sessionMgr.Close()
		s.limiter.Close()
	})
	return s
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(sub))
}

// postRPC sends body to POST /mcp with the given headers
func postRPC(t *testing.T, s *MCPServer, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONRPCResponse {
	t.Helper()

	var resp JSONRPCResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

// initialize opens a session for sub and returns its ID
func initialize(t *testing.T, s *MCPServer, sub string) string {
	t.Helper()

	rec := postRPC(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test-client","version":"1.0"}}}`,
		map[string]string{"Authorization": bearer(t, sub)})

	if rec.Code != http.StatusOK {
		t.Fatalf("initialize status = %d, body = %s", rec.Code, rec.Body.String())
	}
	sessionID := rec.Header().Get("Mcp-Session-Id")
	if sessionID == "" {
		t.Fatal("initialize did not return Mcp-Session-Id")
	}
	return sessionID
}

func sessionHeaders(t *testing.T, sub, sessionID string) map[string]string {
	return map[string]string{
		"Authorization":  bearer(t, sub),
		"Mcp-Session-Id": sessionID,
	}
}

// callResultPayload decodes the JSON text block of a tools/call result
func callResultPayload(t *testing.T, resp JSONRPCResponse) map[string]any {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	var result tools.CallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to decode CallResult: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v, want one text block", result.Content)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("content text is not JSON: %v", err)
	}
	return payload
}

func TestMCPServer_Healthz(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestMCPServer_Initialize(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postRPC(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test-client"}}}`,
		map[string]string{"Authorization": bearer(t, "user-1")})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	sessionID := rec.Header().Get("Mcp-Session-Id")
	if sessionID == "" {
		t.Fatal("Mcp-Session-Id header missing")
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}

	resp := decodeResponse(t, rec)
	if string(resp.ID) != "1" {
		t.Errorf("id = %s, want 1", resp.ID)
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		Capabilities    struct {
			Tools map[string]any `json:"tools"`
		} `json:"capabilities"`
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to decode initialize result: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %s, want the client's 2024-11-05", result.ProtocolVersion)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability missing")
	}
	if result.ServerInfo.Name != ServerName {
		t.Errorf("serverInfo.name = %s, want %s", result.ServerInfo.Name, ServerName)
	}

	session, err := s.Sessions().GetSession(sessionID)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if session.UserID != "user-1" || session.ClientName != "test-client" {
		t.Errorf("session = %+v", session)
	}
}

func TestMCPServer_InitializeNegotiatesUnknownVersion(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postRPC(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"1999-01-01"}}`,
		map[string]string{"Authorization": bearer(t, "user-1")})

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := json.Unmarshal(decodeResponse(t, rec).Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.ProtocolVersion != SupportedProtocolVersions[0] {
		t.Errorf("protocolVersion = %s, want %s", result.ProtocolVersion, SupportedProtocolVersions[0])
	}
}

func TestMCPServer_InitializedNotification(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")

	rec := postRPC(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, sessionHeaders(t, "user-1", sessionID))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestMCPServer_Unauthorized(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"no credentials", nil},
		{"bad token", map[string]string{"Authorization": "Bearer not-a-jwt"}},
		{"debug header outside dev mode", map[string]string{"X-Debug-Sub": "user-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, tt.headers)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestMCPServer_DevMode(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.DevMode = true
		c.JWTSecret = ""
	})

	rec := postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		map[string]string{"X-Debug-Sub": "dev-user"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	sessionID := rec.Header().Get("Mcp-Session-Id")
	session, err := s.Sessions().GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.UserID != "dev-user" {
		t.Errorf("UserID = %s, want dev-user", session.UserID)
	}
}

func TestMCPServer_RequestErrors(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")
	otherSession := initialize(t, s, "user-2")

	tests := []struct {
		name     string
		body     string
		headers  map[string]string
		wantID   string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "malformed json",
			body:     `{"jsonrpc":"2.0",`,
			headers:  sessionHeaders(t, "user-1", sessionID),
			wantID:   "null",
			wantCode: ParseError,
			wantMsg:  "invalid JSON",
		},
		{
			name:     "wrong jsonrpc version",
			body:     `{"jsonrpc":"1.0","id":7,"method":"ping"}`,
			headers:  sessionHeaders(t, "user-1", sessionID),
			wantID:   "7",
			wantCode: InvalidRequest,
			wantMsg:  "invalid jsonrpc version",
		},
		{
			name:     "missing session header",
			body:     `{"jsonrpc":"2.0","id":"a","method":"ping"}`,
			headers:  map[string]string{"Authorization": bearer(t, "user-1")},
			wantID:   `"a"`,
			wantCode: InvalidRequest,
			wantMsg:  "missing Mcp-Session-Id header",
		},
		{
			name:     "unknown session",
			body:     `{"jsonrpc":"2.0","id":2,"method":"ping"}`,
			headers:  sessionHeaders(t, "user-1", "no-such-session"),
			wantID:   "2",
			wantCode: InvalidRequest,
			wantMsg:  "session not found",
		},
		{
			name:     "session of another user",
			body:     `{"jsonrpc":"2.0","id":3,"method":"ping"}`,
			headers:  sessionHeaders(t, "user-1", otherSession),
			wantID:   "3",
			wantCode: InvalidRequest,
			wantMsg:  "session user mismatch",
		},
		{
			name:     "unknown method",
			body:     `{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
			headers:  sessionHeaders(t, "user-1", sessionID),
			wantID:   "4",
			wantCode: MethodNotFound,
			wantMsg:  "method not found: resources/list",
		},
		{
			name:     "tools/call without params",
			body:     `{"jsonrpc":"2.0","id":5,"method":"tools/call"}`,
			headers:  sessionHeaders(t, "user-1", sessionID),
			wantID:   "5",
			wantCode: InvalidParams,
			wantMsg:  "invalid tool call parameters",
		},
		{
			name:     "tools/call without name",
			body:     `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"arguments":{}}}`,
			headers:  sessionHeaders(t, "user-1", sessionID),
			wantID:   "6",
			wantCode: InvalidParams,
			wantMsg:  "missing tool name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRPC(t, s, tt.body, tt.headers)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (JSON-RPC errors use HTTP 200)", rec.Code)
			}

			resp := decodeResponse(t, rec)
			if resp.Error == nil {
				t.Fatalf("expected error, got result %s", resp.Result)
			}
			if string(resp.ID) != tt.wantID {
				t.Errorf("id = %s, want %s", resp.ID, tt.wantID)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestMCPServer_ProtocolVersionHeader(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")

	for _, version := range SupportedProtocolVersions {
		t.Run(version, func(t *testing.T) {
			headers := sessionHeaders(t, "user-1", sessionID)
			headers["Mcp-Protocol-Version"] = version
			rec := postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, headers)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
		})
	}

	headers := sessionHeaders(t, "user-1", sessionID)
	headers["Mcp-Protocol-Version"] = "2023-01-01"
	rec := postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, headers)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported version status = %d, want 400", rec.Code)
	}
}

func TestMCPServer_Ping(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")

	resp := decodeResponse(t, postRPC(t, s, `{"jsonrpc":"2.0","id":9,"method":"ping"}`, sessionHeaders(t, "user-1", sessionID)))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.Result) != "{}" {
		t.Errorf("result = %s, want {}", resp.Result)
	}
}

func TestMCPServer_ToolsList(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")

	resp := decodeResponse(t, postRPC(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, sessionHeaders(t, "user-1", sessionID)))
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	var result struct {
		Tools []tools.ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to decode tools/list result: %v", err)
	}

	want := tools.BuildRegistry().List()
	if len(result.Tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(result.Tools), len(want))
	}
	for i, tool := range result.Tools {
		if tool.Name != want[i].Name {
			t.Errorf("tools[%d] = %s, want %s", i, tool.Name, want[i].Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s inputSchema.type = %v, want object", tool.Name, tool.InputSchema["type"])
		}
	}
}

func TestMCPServer_ToolsCall(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")
	headers := sessionHeaders(t, "user-1", sessionID)

	t.Run("get_column_map", func(t *testing.T) {
		resp := decodeResponse(t, postRPC(t, s,
			`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_column_map","arguments":{"sheet_id":"1234567890123456"}}}`,
			headers))

		payload := callResultPayload(t, resp)
		if payload["success"] != true {
			t.Errorf("success = %v, want true", payload["success"])
		}
		if payload["sheet_id"] == nil {
			t.Error("sheet_id missing")
		}
		columnMap, ok := payload["column_map"].(map[string]any)
		if !ok || columnMap["Task Name"] == nil {
			t.Errorf("column_map = %v, want Task Name entry", payload["column_map"])
		}
	})

	t.Run("cross references with details", func(t *testing.T) {
		resp := decodeResponse(t, postRPC(t, s,
			`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"smartsheet_get_sheet_cross_references","arguments":{"sheet_id":"1234567890123456","include_details":true}}}`,
			headers))

		payload := callResultPayload(t, resp)
		total, ok := payload["total_references"].(float64)
		if !ok || total < 0 {
			t.Errorf("total_references = %v, want >= 0", payload["total_references"])
		}
		if _, ok := payload["cross_references"]; !ok {
			t.Error("cross_references missing")
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		resp := decodeResponse(t, postRPC(t, s,
			`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"unknown_tool","arguments":{}}}`,
			headers))

		if resp.Error == nil {
			t.Fatal("expected error")
		}
		if resp.Error.Code != MethodNotFound || resp.Error.Message != "Unknown tool: unknown_tool" {
			t.Errorf("error = %d %q", resp.Error.Code, resp.Error.Message)
		}
	})

	t.Run("missing required parameter", func(t *testing.T) {
		resp := decodeResponse(t, postRPC(t, s,
			`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"get_column_map","arguments":{}}}`,
			headers))

		if resp.Error == nil {
			t.Fatal("expected error")
		}
		if resp.Error.Code != InvalidParams || resp.Error.Message != "Missing required parameter: sheet_id" {
			t.Errorf("error = %d %q", resp.Error.Code, resp.Error.Message)
		}

		var data map[string]any
		if err := json.Unmarshal(resp.Error.Data, &data); err != nil {
			t.Fatalf("error data is not JSON: %v", err)
		}
		if data["code"] != "INVALID_PARAMS" || data["parameter"] != "sheet_id" {
			t.Errorf("error data = %v", data)
		}
	})
}

func TestMCPServer_DeleteSession(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := initialize(t, s, "user-1")
	otherSession := initialize(t, s, "user-2")

	del := func(sessionID, sub string) int {
		req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
		req.Header.Set("Authorization", bearer(t, sub))
		if sessionID != "" {
			req.Header.Set("Mcp-Session-Id", sessionID)
		}
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	if code := del("", "user-1"); code != http.StatusBadRequest {
		t.Errorf("missing header status = %d, want 400", code)
	}
	if code := del(otherSession, "user-1"); code != http.StatusForbidden {
		t.Errorf("foreign session status = %d, want 403", code)
	}
	if code := del(sessionID, "user-1"); code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", code)
	}
	if code := del(sessionID, "user-1"); code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", code)
	}

	resp := decodeResponse(t, postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, sessionHeaders(t, "user-1", sessionID)))
	if resp.Error == nil || resp.Error.Message != "session not found" {
		t.Errorf("request on deleted session = %+v, want session not found", resp.Error)
	}
}

func TestMCPServer_GetNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /mcp status = %d, want 405", rec.Code)
	}
}

func TestMCPServer_OriginValidation(t *testing.T) {
	tests := []struct {
		name           string
		devMode        bool
		allowedOrigins []string
		origin         string
		want           bool
	}{
		{name: "dev mode allows anything", devMode: true, allowedOrigins: []string{"https://a.example"}, origin: "https://evil.example", want: true},
		{name: "empty allow-list allows anything", origin: "https://evil.example", want: true},
		{name: "allowed origin", allowedOrigins: []string{"https://a.example", "https://b.example"}, origin: "https://b.example", want: true},
		{name: "disallowed origin", allowedOrigins: []string{"https://a.example"}, origin: "https://evil.example", want: false},
		{name: "non-browser request", allowedOrigins: []string{"https://a.example"}, origin: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &MCPServer{config: &config.Config{DevMode: tt.devMode, AllowedOrigins: tt.allowedOrigins}}

			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			if got := s.validateOrigin(req); got != tt.want {
				t.Errorf("validateOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMCPServer_OriginValidation_Integration(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.AllowedOrigins = []string{"https://claude.example"}
	})

	rec := postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, map[string]string{
		"Authorization": bearer(t, "user-1"),
		"Origin":        "https://evil.example",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	rec = postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, map[string]string{
		"Authorization": bearer(t, "user-1"),
		"Origin":        "https://claude.example",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMCPServer_RateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{PerMinute: 1, Burst: 2}
	})
	sessionID := initialize(t, s, "user-1") // consumes one token

	rec := postRPC(t, s, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, sessionHeaders(t, "user-1", sessionID))
	if rec.Code != http.StatusOK {
		t.Fatalf("second request status = %d, want 200", rec.Code)
	}

	rec = postRPC(t, s, `{"jsonrpc":"2.0","id":2,"method":"ping"}`, sessionHeaders(t, "user-1", sessionID))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	resp := decodeResponse(t, rec)
	if resp.Error == nil || !bytes.Contains(resp.Error.Data, []byte(`"RATE_LIMIT"`)) {
		t.Errorf("error = %+v, want RATE_LIMIT data", resp.Error)
	}

	// other users keep their own budget
	initialize(t, s, "user-2")
}
