package fsbridge

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fsbridge/fsbridge-go/internal/mcputil"
	"github.com/fsbridge/fsbridge-go/internal/registry"
)

// Re-export MCP SDK types for the public API.
// These are the official MCP protocol types.
type (
	// Tool is an MCP tool descriptor: name, description, and input schema.
	Tool = mcp.Tool

	// CallToolResult is a tool handler's result.
	// Use TextResult or ErrorResult helpers to create results.
	CallToolResult = mcp.CallToolResult

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema

	// ToolHandler executes a tool call with schema-validated arguments.
	ToolHandler = registry.Handler
)

// NewTool creates a Tool descriptor with the given parameters.
func NewTool(name, description string, inputSchema *Schema) *Tool {
	return mcputil.NewTool(name, description, inputSchema)
}

// SimpleSchema creates a Schema from a simple type map in which every
// property is required.
//
// Input format: {"a": "float64", "b": "string"}
func SimpleSchema(props map[string]string) *Schema {
	return mcputil.SimpleSchema(props)
}

// TextResult creates a CallToolResult with a single text content chunk.
func TextResult(text string) *CallToolResult {
	return mcputil.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *CallToolResult {
	return mcputil.ErrorResult(message)
}
