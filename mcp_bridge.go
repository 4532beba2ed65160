package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apex-agent/apex/internal/registry"
)

// buildMCPServer exposes every registered agent tool over MCP, so external
// clients can call the same toolset the conversation loop uses.
func buildMCPServer(reg *registry.Registry, log *slog.Logger) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "apex",
		Version: "1.0.0",
	}, nil)

	dispatcher := registry.NewDispatcher(reg, log)

	for _, name := range reg.List() {
		tool, _ := reg.Get(name)
		schema, err := toJSONSchema(tool.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", name, err)
		}

		toolName := name
		server.AddTool(&mcp.Tool{
			Name:        toolName,
			Description: tool.Description(),
			InputSchema: schema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args map[string]any
			if len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return nil, fmt.Errorf("decode arguments: %w", err)
				}
			}
			out := dispatcher.Dispatch(ctx, toolName, args)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: out.Render()}},
				IsError: out.Failed,
			}, nil
		})
	}
	return server, nil
}

// toJSONSchema converts a tool's schema map into the typed form the MCP
// SDK expects.
func toJSONSchema(m map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}
