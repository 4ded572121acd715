package fsbridge

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Param describes one tool parameter in framework-neutral form, flattened
// from the tool's JSON input schema.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolBinding is a framework-shaped wrapper around one remote tool: the
// schema an agent's reasoning layer consumes plus a callable closure.
type ToolBinding struct {
	Name        string
	Description string
	Params      []Param

	// Invoke calls the tool through the client with its default timeout
	// and returns the text payload, chunks joined by newlines.
	Invoke func(ctx context.Context, args map[string]any) (string, error)
}

// ExportTools fetches the server's tool listing once and wraps each
// descriptor in a calling closure.
//
// A failed listing is fatal to adapter construction: no bindings are
// returned. The listing is treated as immutable for the connection's
// lifetime, so ExportTools should be called once after Start.
func ExportTools(ctx context.Context, client Client) ([]ToolBinding, error) {
	infos, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("export tools: %w", err)
	}

	bindings := make([]ToolBinding, 0, len(infos))

	for _, info := range infos {
		bindings = append(bindings, ToolBinding{
			Name:        info.Name,
			Description: info.Description,
			Params:      paramsFromSchema(info.InputSchema),
			Invoke: func(ctx context.Context, args map[string]any) (string, error) {
				content, err := client.Call(ctx, info.Name, args)
				if err != nil {
					return "", err
				}

				return joinText(content), nil
			},
		})
	}

	return bindings, nil
}

// paramsFromSchema flattens a JSON object schema into a parameter list,
// sorted by name for a stable presentation.
func paramsFromSchema(schema map[string]any) []Param {
	properties, _ := schema["properties"].(map[string]any)
	if len(properties) == 0 {
		return nil
	}

	required := make(map[string]bool)

	if names, ok := schema["required"].([]any); ok {
		for _, n := range names {
			if name, ok := n.(string); ok {
				required[name] = true
			}
		}
	}

	params := make([]Param, 0, len(properties))

	for name, raw := range properties {
		param := Param{Name: name, Required: required[name]}

		if prop, ok := raw.(map[string]any); ok {
			param.Type, _ = prop["type"].(string)
			param.Description, _ = prop["description"].(string)
		}

		params = append(params, param)
	}

	slices.SortFunc(params, func(a, b Param) int {
		return strings.Compare(a.Name, b.Name)
	})

	return params
}

// joinText concatenates the text chunks of a result, one line per chunk.
func joinText(content []Content) string {
	texts := make([]string, 0, len(content))
	for _, c := range content {
		texts = append(texts, c.Text)
	}

	return strings.Join(texts, "\n")
}
