package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsbridge/fsbridge-go/internal/errors"
	"github.com/fsbridge/fsbridge-go/internal/mcputil"
)

func echoTool(name string) *mcp.Tool {
	return mcputil.NewTool(name, "Echo the input back.", &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"text": {Type: "string"},
		},
		Required: []string{"text"},
	})
}

func echoHandler(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	text, _ := args["text"].(string)

	return mcputil.TextResult(text), nil
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	reg := New(slog.Default())

	require.NoError(t, reg.Register(echoTool("echo"), echoHandler))

	err := reg.Register(echoTool("echo"), echoHandler)
	require.ErrorIs(t, err, errors.ErrDuplicateTool)
	assert.Equal(t, 1, reg.Len())
}

func TestRegister_RejectsMissingNameAndHandler(t *testing.T) {
	reg := New(slog.Default())

	require.Error(t, reg.Register(nil, echoHandler))
	require.Error(t, reg.Register(&mcp.Tool{}, echoHandler))
	require.Error(t, reg.Register(echoTool("echo"), nil))
	assert.Equal(t, 0, reg.Len())
}

func TestDispatch_Success(t *testing.T) {
	reg := New(slog.Default())
	require.NoError(t, reg.Register(echoTool("echo"), echoHandler))

	result, err := reg.Dispatch(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].(*mcp.TextContent).Text)
}

func TestDispatch_UnknownTool(t *testing.T) {
	reg := New(slog.Default())

	_, err := reg.Dispatch(context.Background(), "nope", nil)
	require.ErrorIs(t, err, errors.ErrUnknownTool)
}

func TestDispatch_SchemaValidation(t *testing.T) {
	reg := New(slog.Default())
	require.NoError(t, reg.Register(echoTool("echo"), echoHandler))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing required", map[string]any{}},
		{"nil args", nil},
		{"wrong type", map[string]any{"text": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Dispatch(context.Background(), "echo", tt.args)

			var invalidErr *errors.InvalidArgumentsError
			require.ErrorAs(t, err, &invalidErr)
			assert.Equal(t, "echo", invalidErr.Tool)
		})
	}
}

func TestDispatch_HandlerNotInvokedOnBadArgs(t *testing.T) {
	reg := New(slog.Default())

	invoked := false
	handler := func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		invoked = true

		return mcputil.TextResult("x"), nil
	}

	require.NoError(t, reg.Register(echoTool("echo"), handler))

	_, err := reg.Dispatch(context.Background(), "echo", map[string]any{"text": 1})
	require.Error(t, err)
	assert.False(t, invoked)
}

func TestDispatch_PanicRecovered(t *testing.T) {
	reg := New(slog.Default())

	tool := mcputil.NewTool("boom", "Always panics.", nil)
	handler := func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		panic("kaboom")
	}

	require.NoError(t, reg.Register(tool, handler))

	result, err := reg.Dispatch(context.Background(), "boom", nil)
	assert.Nil(t, result)

	var execErr *errors.HandlerExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "boom", execErr.Tool)
	assert.Contains(t, execErr.Error(), "kaboom")
}

func TestDispatch_HandlerErrorWrapped(t *testing.T) {
	reg := New(slog.Default())

	tool := mcputil.NewTool("fail", "Always fails.", nil)
	handler := func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return nil, fmt.Errorf("disk on fire")
	}

	require.NoError(t, reg.Register(tool, handler))

	_, err := reg.Dispatch(context.Background(), "fail", nil)

	var execErr *errors.HandlerExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestDispatch_BridgeErrorPassesThrough(t *testing.T) {
	reg := New(slog.Default())

	escapeErr := &errors.PathEscapeError{Path: "../x", Root: "/data"}

	tool := mcputil.NewTool("escape", "Always escapes.", nil)
	handler := func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return nil, fmt.Errorf("validate: %w", escapeErr)
	}

	require.NoError(t, reg.Register(tool, handler))

	_, err := reg.Dispatch(context.Background(), "escape", nil)

	// The sandbox error keeps its identity instead of being rewrapped as a
	// handler failure.
	var got *errors.PathEscapeError
	require.ErrorAs(t, err, &got)

	var execErr *errors.HandlerExecutionError
	assert.False(t, stderrors.As(err, &execErr))
}

func TestList_SortedWithSchemas(t *testing.T) {
	reg := New(slog.Default())

	require.NoError(t, reg.Register(echoTool("zeta"), echoHandler))
	require.NoError(t, reg.Register(echoTool("alpha"), echoHandler))
	require.NoError(t, reg.Register(mcputil.NewTool("mid", "No schema.", nil), echoHandler))

	infos := reg.List()
	require.Len(t, infos, 3)

	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "mid", infos[1].Name)
	assert.Equal(t, "zeta", infos[2].Name)

	require.NotNil(t, infos[0].InputSchema)
	assert.Equal(t, "object", infos[0].InputSchema["type"])
	assert.Nil(t, infos[1].InputSchema)
}
