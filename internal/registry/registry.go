// Package registry maps tool names to descriptors and handlers.
//
// Registration happens once at server startup; dispatch is safe for
// concurrent use afterwards. Dispatch validates arguments against the tool's
// input schema before invoking the handler and fails closed on unknown
// names.
package registry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fsbridge/fsbridge-go/internal/errors"
	"github.com/fsbridge/fsbridge-go/internal/wire"
)

// Handler executes a tool call. Handlers receive schema-validated arguments
// and are synchronous; the server loop owns concurrency.
type Handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// entry holds one registered tool with its resolved schema.
type entry struct {
	tool     *mcp.Tool
	resolved *jsonschema.Resolved
	handler  Handler
}

// Registry holds the server's tool set.
type Registry struct {
	log   *slog.Logger
	mu    sync.RWMutex
	tools map[string]*entry
}

// New creates an empty registry.
func New(log *slog.Logger) *Registry {
	return &Registry{
		log:   log.With("component", "registry"),
		tools: make(map[string]*entry, 8),
	}
}

// Register adds a tool to the registry. It fails if the name is already
// present. The input schema is resolved here, once, so dispatch only pays
// for validation.
func (r *Registry) Register(tool *mcp.Tool, handler Handler) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("register tool: missing name")
	}

	if handler == nil {
		return fmt.Errorf("register tool %s: nil handler", tool.Name)
	}

	var resolved *jsonschema.Resolved

	if tool.InputSchema != nil {
		schema, ok := tool.InputSchema.(*jsonschema.Schema)
		if !ok {
			return fmt.Errorf("resolve schema for tool %s: unsupported schema type %T", tool.Name, tool.InputSchema)
		}

		if schema != nil {
			var err error

			resolved, err = schema.Resolve(nil)
			if err != nil {
				return fmt.Errorf("resolve schema for tool %s: %w", tool.Name, err)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("register tool %s: %w", tool.Name, errors.ErrDuplicateTool)
	}

	r.tools[tool.Name] = &entry{tool: tool, resolved: resolved, handler: handler}
	r.log.Debug("Registered tool", "tool", tool.Name)

	return nil
}

// Dispatch validates args against the named tool's input schema and invokes
// its handler.
//
// Unknown names fail with errors.ErrUnknownTool and schema mismatches with
// *errors.InvalidArgumentsError, in both cases without invoking the handler.
// A handler panic is recovered and converted to *errors.HandlerExecutionError
// so a broken tool cannot take the server loop down.
func (r *Registry) Dispatch(
	ctx context.Context,
	name string,
	args map[string]any,
) (result *mcp.CallToolResult, err error) {
	r.mu.RLock()
	e, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		r.log.Warn("Dispatch for unknown tool", "tool", name)

		return nil, fmt.Errorf("dispatch %s: %w", name, errors.ErrUnknownTool)
	}

	if args == nil {
		args = map[string]any{}
	}

	if e.resolved != nil {
		if verr := e.resolved.Validate(args); verr != nil {
			r.log.Warn("Tool arguments failed schema validation", "tool", name, "error", verr)

			return nil, &errors.InvalidArgumentsError{Tool: name, Err: verr}
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Tool handler panicked", "tool", name, "panic", rec)

			result = nil
			err = &errors.HandlerExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err = e.handler(ctx, args)
	if err != nil {
		// Sandbox and argument errors keep their identity; anything else is
		// a handler execution failure.
		var bridgeErr errors.BridgeError
		if stderrors.As(err, &bridgeErr) {
			return nil, err
		}

		return nil, &errors.HandlerExecutionError{Tool: name, Err: err}
	}

	return result, nil
}

// List returns the descriptor listing for all registered tools, sorted by
// name for a deterministic wire representation.
func (r *Registry) List() []wire.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]wire.ToolInfo, 0, len(r.tools))

	for _, e := range r.tools {
		info := wire.ToolInfo{
			Name:        e.tool.Name,
			Description: e.tool.Description,
		}

		// Flatten the schema through JSON for the wire representation.
		if e.tool.InputSchema != nil {
			if data, err := json.Marshal(e.tool.InputSchema); err == nil {
				var schemaMap map[string]any
				if json.Unmarshal(data, &schemaMap) == nil {
					info.InputSchema = schemaMap
				}
			}
		}

		infos = append(infos, info)
	}

	slices.SortFunc(infos, func(a, b wire.ToolInfo) int {
		return strings.Compare(a.Name, b.Name)
	})

	return infos
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}
