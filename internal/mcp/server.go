// Package mcp exposes the retrieval strategies as Model Context Protocol
// tools, so external MCP clients can search the corpus directly without
// going through the conversation loop.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/selahapp/selah/internal/agent"
	"github.com/selahapp/selah/internal/retrieval"
)

// Server wraps the MCP SDK server around the strategy set.
type Server struct {
	mcpServer  *mcp.Server
	strategies *agent.Strategies
	name       string
	version    string
}

// Config holds MCP server configuration.
type Config struct {
	Name       string
	Version    string
	Strategies *agent.Strategies
}

// NewServer creates a new MCP server with all four strategies registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Strategies == nil {
		return nil, fmt.Errorf("strategies are required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		mcpServer:  mcpServer,
		strategies: cfg.Strategies,
		name:       cfg.Name,
		version:    cfg.Version,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := registerStrategy(s, retrieval.StrategySemantic,
		"Search passages by meaning. Describe what the user is looking for in natural language.",
		s.strategies.SemanticSearch); err != nil {
		return err
	}
	if err := registerStrategy(s, retrieval.StrategyTags,
		"Find passages tagged with an emotion. Give a feeling word such as anxious, grief, or joy.",
		s.strategies.TagSearch); err != nil {
		return err
	}
	if err := registerStrategy(s, retrieval.StrategyRelated,
		"Find passages cross-referenced from a given passage, strongest links first.",
		s.strategies.RelatedPassages); err != nil {
		return err
	}
	if err := registerStrategy(s, retrieval.StrategyWindow,
		"Read the verses surrounding a given verse within its chapter.",
		s.strategies.ContextWindow); err != nil {
		return err
	}
	return nil
}

// registerStrategy wires one strategy method as an MCP tool. The input
// schema is inferred from the strategy's input struct; results go back as
// a JSON text block.
func registerStrategy[In any](s *Server, name, description string, run func(context.Context, In) ([]retrieval.Result, error)) error {
	inputSchema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", name, err)
	}

	tool := &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		results, err := run(ctx, in)
		if err != nil {
			// Caller mistakes come back as tool errors the client can
			// correct; infrastructure failures propagate to the protocol.
			if errors.Is(err, agent.ErrInvalidStrategyRequest) {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil, nil
			}
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}

		if results == nil {
			results = []retrieval.Result{}
		}
		payload, err := json.Marshal(map[string]any{
			"results": results,
			"count":   len(results),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("encoding results: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil, nil
	})

	return nil
}
