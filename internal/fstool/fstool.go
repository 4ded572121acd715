// Package fstool implements the builtin filesystem tools: read_file,
// list_directory, and write_file.
//
// Every path-valued argument is validated against the sandbox root before
// the handler touches storage.
package fstool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fsbridge/fsbridge-go/internal/mcputil"
	"github.com/fsbridge/fsbridge-go/internal/registry"
	"github.com/fsbridge/fsbridge-go/internal/sandbox"
)

// RegisterAll adds the builtin filesystem tools to reg, all confined to
// root.
func RegisterAll(reg *registry.Registry, root *sandbox.Root) error {
	tools := []struct {
		tool    *mcp.Tool
		handler registry.Handler
	}{
		{readFileTool(), readFileHandler(root)},
		{listDirectoryTool(), listDirectoryHandler(root)},
		{writeFileTool(), writeFileHandler(root)},
	}

	for _, t := range tools {
		if err := reg.Register(t.tool, t.handler); err != nil {
			return err
		}
	}

	return nil
}

func readFileTool() *mcp.Tool {
	return mcputil.NewTool(
		"read_file",
		"Read the complete contents of a text file. Returns file content as a string.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Path to the file to read, relative to the sandbox root or absolute",
				},
			},
			Required: []string{"path"},
		},
	)
}

func readFileHandler(root *sandbox.Root) registry.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		path, _ := args["path"].(string)

		full, err := root.Validate(path)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("file not found: %s", path)
			}

			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			return nil, fmt.Errorf("not a file: %s", path)
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		if !utf8.Valid(data) {
			return nil, fmt.Errorf("file is not a text file: %s", path)
		}

		return mcputil.TextResult(string(data)), nil
	}
}

func listDirectoryTool() *mcp.Tool {
	return mcputil.NewTool(
		"list_directory",
		"List all files and directories in a given directory path, sorted by name.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Directory path to list. Use '.' for the sandbox root.",
				},
				"detailed": {
					Type:        "boolean",
					Description: "Include entry type and size in each line",
				},
			},
			Required: []string{"path"},
		},
	)
}

func listDirectoryHandler(root *sandbox.Root) registry.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		path, _ := args["path"].(string)
		detailed, _ := args["detailed"].(bool)

		full, err := root.Validate(path)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("directory not found: %s", path)
			}

			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			return nil, fmt.Errorf("not a directory: %s", path)
		}

		// os.ReadDir returns entries sorted by filename.
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", path, err)
		}

		lines := make([]string, 0, len(entries))

		for _, entry := range entries {
			if !detailed {
				lines = append(lines, entry.Name())

				continue
			}

			kind := "FILE"

			var size int64

			if entry.IsDir() {
				kind = "DIR"
			} else if fi, err := entry.Info(); err == nil {
				size = fi.Size()
			}

			lines = append(lines, fmt.Sprintf("%-6s %10d bytes  %s", kind, size, entry.Name()))
		}

		return mcputil.TextsResult(lines), nil
	}
}

func writeFileTool() *mcp.Tool {
	return mcputil.NewTool(
		"write_file",
		"Write content to a file. Creates the file if it doesn't exist, overwrites if it does.",
		&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "Path where to write the file",
				},
				"content": {
					Type:        "string",
					Description: "Content to write to the file",
				},
			},
			Required: []string{"path", "content"},
		},
	)
}

func writeFileHandler(root *sandbox.Root) registry.Handler {
	return func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		path, _ := args["path"].(string)
		content, _ := args["content"].(string)

		full, err := root.Validate(path)
		if err != nil {
			return nil, err
		}

		// Parent directories are created as needed; the validated path is
		// inside the root, so all parents are too.
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("create parent directories for %s: %w", path, err)
		}

		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}

		return mcputil.TextResult(fmt.Sprintf(
			"Successfully wrote %d characters to %s",
			utf8.RuneCountInString(content), filepath.Base(full),
		)), nil
	}
}
