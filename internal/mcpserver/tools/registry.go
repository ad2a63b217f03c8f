package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Registry manages tool definitions and dispatches tool calls.
// It is built once at startup and sealed; afterwards it is read-only.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*toolEntry
	ordering []string // Preserve registration order for consistent tools/list
	sealed   bool
}

type toolEntry struct {
	def       ToolDefinition
	handler   Handler
	validator *argValidator
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*toolEntry),
	}
}

// Register adds a tool definition and handler to the registry
func (r *Registry) Register(def ToolDefinition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	validator, err := newArgValidator(def.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry is sealed, cannot register %s", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}

	r.tools[def.Name] = &toolEntry{
		def:       def,
		handler:   handler,
		validator: validator,
	}
	r.ordering = append(r.ordering, def.Name)

	return nil
}

// MustRegister registers a tool or panics on error (for init-time registration)
func (r *Registry) MustRegister(def ToolDefinition, handler Handler) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// Seal prevents further registration
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// List returns all registered tool descriptors (for tools/list response).
// Schemas are deep copies; callers may modify them freely.
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]ToolDescriptor, 0, len(r.ordering))
	for _, name := range r.ordering {
		entry := r.tools[name]
		descriptors = append(descriptors, ToolDescriptor{
			Name:        entry.def.Name,
			Description: entry.def.Description,
			InputSchema: copySchema(entry.def.InputSchema),
		})
	}

	return descriptors
}

// Call executes a tool by name with the given parameters.
// Arguments are validated and defaulted before the handler runs; the
// handler result is wrapped in MCP content format.
func (r *Registry) Call(ctx context.Context, toolCtx *ToolContext, req CallRequest) (interface{}, error) {
	r.mu.RLock()
	entry, exists := r.tools[req.Name]
	r.mu.RUnlock()

	if !exists {
		return nil, unknownToolError(req.Name)
	}

	args, err := entry.validator.normalize(req.Arguments)
	if err != nil {
		return nil, err
	}

	if toolCtx != nil && toolCtx.Logger != nil {
		toolCtx.Logger.Debug().Str("tool", req.Name).RawJSON("arguments", args).Msg("Dispatching tool call")
	}

	// Execute handler
	result, err := entry.handler(ctx, toolCtx, args)
	if err != nil {
		return nil, err
	}

	// MCP tool results: {"content": [{"type": "text", "text": "..."}]}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, NewToolError(ErrCodeInternal, "Failed to serialize tool result: "+err.Error(), nil)
	}

	return CallResult{
		Content: []ContentBlock{
			{
				Type: "text",
				Text: string(resultJSON),
			},
		},
		IsError: false,
	}, nil
}

// Get retrieves a tool definition by name (for testing)
func (r *Registry) Get(name string) (*ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.tools[name]
	if !exists {
		return nil, false
	}

	def := entry.def
	def.InputSchema = copySchema(def.InputSchema)
	return &def, true
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordering)
}

func copySchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copySchema(t)
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
