package tools

import (
	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
	"github.com/rs/zerolog"
)

// ToolContext provides shared resources for tool handlers
type ToolContext struct {
	Logger    *zerolog.Logger
	UserID    string
	SessionID string
	API       smartsheet.API
	Workspace *Workspace // sandbox for file_path / save_path
}

// NewToolContext creates a per-request context for tool handlers
func NewToolContext(logger *zerolog.Logger, userID, sessionID string, api smartsheet.API, workspace *Workspace) *ToolContext {
	return &ToolContext{
		Logger:    logger,
		UserID:    userID,
		SessionID: sessionID,
		API:       api,
		Workspace: workspace,
	}
}

func (tc *ToolContext) logger() *zerolog.Logger {
	if tc.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return tc.Logger
}

func (tc *ToolContext) api() (smartsheet.API, error) {
	if tc == nil || tc.API == nil {
		return nil, NewToolError(ErrCodeInternal, "Smartsheet API is not configured", nil)
	}
	return tc.API, nil
}
