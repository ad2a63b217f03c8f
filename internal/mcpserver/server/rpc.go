package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erauner12/smartsheet-mcp/internal/mcpserver/tools"
	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/rs/zerolog"
)

// ServerName is reported in the initialize result
const ServerName = "smartsheet-mcp"

// Version is reported in the initialize result; overridden at build time
var Version = "0.1.0"

// SupportedProtocolVersions lists the MCP revisions this server speaks, newest first
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// negotiateVersion echoes the client's revision when supported, else offers the newest
func negotiateVersion(requested string) string {
	for _, v := range SupportedProtocolVersions {
		if v == requested {
			return v
		}
	}
	return SupportedProtocolVersions[0]
}

func isSupportedVersion(v string) bool {
	for _, s := range SupportedProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

func parseInitialize(raw json.RawMessage) initializeParams {
	var p initializeParams
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}
	return p
}

func initializeResult(protocolVersion string) map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{"listChanged": false},
		},
		"serverInfo": map[string]interface{}{
			"name":    ServerName,
			"version": Version,
		},
	}
}

// rpcHandler answers MCP methods for one session; both transports share it
type rpcHandler struct {
	registry  *tools.Registry
	api       smartsheet.API
	workspace *tools.Workspace
}

func newRPCHandler(registry *tools.Registry, api smartsheet.API, workspace *tools.Workspace) *rpcHandler {
	return &rpcHandler{registry: registry, api: api, workspace: workspace}
}

// handle routes a request to its method. Notifications return nil.
func (h *rpcHandler) handle(ctx context.Context, req *JSONRPCRequest, session MCPSession) *JSONRPCResponse {
	logger := zerolog.Ctx(ctx).With().
		Str("sessionId", session.ID).
		Str("userId", session.UserID).
		Str("method", req.Method).
		Logger()

	if req.IsNotification() {
		switch req.Method {
		case "notifications/initialized", "notifications/cancelled":
			logger.Debug().Msg("Received notification")
		default:
			logger.Debug().Msg("Ignoring unknown notification")
		}
		return nil
	}

	switch req.Method {
	case "initialize":
		params := parseInitialize(req.Params)
		return newResult(req.ID, initializeResult(negotiateVersion(params.ProtocolVersion)))

	case "ping":
		return newResult(req.ID, struct{}{})

	case "tools/list":
		return newResult(req.ID, map[string]interface{}{"tools": h.registry.List()})

	case "tools/call":
		var callReq tools.CallRequest
		if len(req.Params) == 0 {
			return newError(req.ID, InvalidParams, "invalid tool call parameters", nil)
		}
		if err := json.Unmarshal(req.Params, &callReq); err != nil {
			return newError(req.ID, InvalidParams, "invalid tool call parameters", nil)
		}
		if callReq.Name == "" {
			return newError(req.ID, InvalidParams, "missing tool name", nil)
		}

		toolLogger := logger.With().Str("tool", callReq.Name).Logger()
		toolCtx := tools.NewToolContext(&toolLogger, session.UserID, session.ID, h.api, h.workspace)

		result, err := h.registry.Call(ctx, toolCtx, callReq)
		if err != nil {
			return toolErrorResponse(req.ID, err, &toolLogger)
		}
		return newResult(req.ID, result)

	default:
		return newError(req.ID, MethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

// toolErrorResponse maps a dispatcher failure onto a JSON-RPC error
func toolErrorResponse(id json.RawMessage, err error, logger *zerolog.Logger) *JSONRPCResponse {
	var toolErr *tools.ToolError
	if errors.As(err, &toolErr) {
		code, message, data := toolErr.ToJSONRPCError()
		logger.Info().Str("code", string(toolErr.Code)).Msg(message)
		return newError(id, code, message, data)
	}

	logger.Error().Err(err).Msg("Tool call failed")
	return newError(id, InternalError, err.Error(), nil)
}
