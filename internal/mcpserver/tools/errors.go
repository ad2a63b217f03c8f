package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erauner12/smartsheet-mcp/internal/smartsheet"
)

// Sentinels for the two dispatcher failure kinds, reachable with errors.Is
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ToolError represents a structured error from tool execution.
// Error() returns Message alone so callers see the exact text, e.g.
// "Missing required parameter: sheet_id".
type ToolError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`

	cause error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.cause
}

// ErrorCode categorizes tool errors for JSON-RPC translation
type ErrorCode string

const (
	ErrCodeInvalidParams  ErrorCode = "INVALID_PARAMS"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeRateLimit      ErrorCode = "RATE_LIMIT"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeMethodNotFound ErrorCode = "METHOD_NOT_FOUND"
)

// NewToolError creates a tool error with optional data
func NewToolError(code ErrorCode, message string, data map[string]any) *ToolError {
	return &ToolError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func unknownToolError(name string) *ToolError {
	return &ToolError{Code: ErrCodeMethodNotFound, Message: "Unknown tool: " + name, cause: ErrUnknownTool}
}

func missingParameterError(field string) *ToolError {
	return &ToolError{
		Code:    ErrCodeInvalidParams,
		Message: "Missing required parameter: " + field,
		Data:    map[string]any{"parameter": field},
		cause:   ErrMissingParameter,
	}
}

func invalidParameterError(format string, args ...any) *ToolError {
	return &ToolError{Code: ErrCodeInvalidParams, Message: fmt.Sprintf(format, args...), cause: ErrInvalidParameter}
}

// WrapAPIError converts Smartsheet adapter errors into ToolErrors
func WrapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	var notFound smartsheet.ErrNotFound
	var rateLimited smartsheet.ErrRateLimited
	var apiErr *smartsheet.APIError

	switch {
	case errors.As(err, &notFound):
		return &ToolError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("%s %d not found", notFound.Kind, notFound.ID),
			Data:    map[string]any{"kind": notFound.Kind, "id": notFound.ID},
			cause:   err,
		}

	case errors.As(err, &rateLimited):
		return &ToolError{
			Code:    ErrCodeRateLimit,
			Message: "Smartsheet rate limit exceeded",
			Data:    map[string]any{"retryAfter": rateLimited.RetryAfter},
			cause:   err,
		}

	case errors.Is(err, smartsheet.ErrUnauthorized):
		return &ToolError{Code: ErrCodeUnauthorized, Message: "Smartsheet rejected the configured access token", cause: err}

	case errors.As(err, &apiErr) && apiErr.StatusCode == 400:
		return &ToolError{
			Code:    ErrCodeInvalidParams,
			Message: apiErr.Message,
			Data:    map[string]any{"errorCode": apiErr.ErrorCode},
			cause:   err,
		}

	default:
		return &ToolError{Code: ErrCodeInternal, Message: err.Error(), cause: err}
	}
}

// ToJSONRPCError converts ToolError to JSON-RPC error code
func (e *ToolError) ToJSONRPCError() (int, string, json.RawMessage) {
	var code int
	switch e.Code {
	case ErrCodeInvalidParams, ErrCodeNotFound:
		code = -32602 // InvalidParams
	case ErrCodeMethodNotFound:
		code = -32601 // MethodNotFound
	case ErrCodeRateLimit, ErrCodeUnauthorized:
		code = -32603 // InternalError (see data.code)
	default:
		code = -32603 // InternalError
	}

	data := map[string]any{"code": e.Code}
	for k, v := range e.Data {
		data[k] = v
	}
	dataBytes, _ := json.Marshal(data)

	return code, e.Message, dataBytes
}
