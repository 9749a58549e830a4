package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mdaudit/scan"
)

// RegisterMCP registers the mdaudit tools on an MCP server.
//
// Registered tools:
//
//	mdaudit_scan    — scan a directory tree and return the report
//	mdaudit_audit   — scan and check every external link
//	mdaudit_search  — targeted search: text, link prefix, code fences
//	mdaudit_analyze — analyze raw markdown text
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerScanTool(srv)
	s.registerAuditTool(srv)
	s.registerSearchTool(srv)
	s.registerAnalyzeTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// registerTool adapts a typed endpoint to the MCP tool contract: decode
// arguments, run, marshal the result into a text content block. Tool
// failures are reported as tool errors, not protocol errors.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		resp, err := endpoint(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

type scanToolReq struct {
	RootPath string `json:"root_path"`
}

func (s *Service) registerScanTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdaudit_scan",
		Description: "Scan a directory tree of markup documents and return per-file and aggregate statistics.",
		InputSchema: inputSchema(map[string]any{
			"root_path": map[string]any{"type": "string", "description": "Directory to scan (inside the permitted root)"},
		}, []string{"root_path"}),
	}
	registerTool(srv, tool, func(ctx context.Context, r *scanToolReq) (any, error) {
		return s.Scan(ctx, r.RootPath)
	})
}

func (s *Service) registerAuditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdaudit_audit",
		Description: "Scan a directory tree and check the HTTP status of every external link found.",
		InputSchema: inputSchema(map[string]any{
			"root_path": map[string]any{"type": "string", "description": "Directory to scan (inside the permitted root)"},
		}, []string{"root_path"}),
	}
	registerTool(srv, tool, func(ctx context.Context, r *scanToolReq) (any, error) {
		return s.AuditLinks(ctx, r.RootPath)
	})
}

type searchToolReq struct {
	RootPath   string `json:"root_path"`
	Text       string `json:"text"`
	LinkPrefix string `json:"link_prefix"`
	Language   string `json:"language"`
	Untagged   bool   `json:"untagged"`
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdaudit_search",
		Description: "Search a directory tree of markup documents for text (with line numbers), links by URL prefix, or fenced code blocks by language.",
		InputSchema: inputSchema(map[string]any{
			"root_path":   map[string]any{"type": "string", "description": "Directory to scan (inside the permitted root)"},
			"text":        map[string]any{"type": "string", "description": "Substring to find, case-insensitive"},
			"link_prefix": map[string]any{"type": "string", "description": "Match external links whose URL starts with this prefix"},
			"language":    map[string]any{"type": "string", "description": "Match fenced code blocks with this language tag"},
			"untagged":    map[string]any{"type": "boolean", "description": "Match fenced code blocks with no language tag"},
		}, []string{"root_path"}),
	}
	registerTool(srv, tool, func(ctx context.Context, r *searchToolReq) (any, error) {
		return s.Search(ctx, r.RootPath, scan.SearchQuery{
			Text:       r.Text,
			LinkPrefix: r.LinkPrefix,
			Language:   r.Language,
			Untagged:   r.Untagged,
		})
	})
}

type analyzeToolReq struct {
	Text string `json:"text"`
}

func (s *Service) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdaudit_analyze",
		Description: "Analyze raw markdown text: headings, links, images, code blocks, tables, words.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Markdown text to analyze"},
		}, []string{"text"}),
	}
	registerTool(srv, tool, func(_ context.Context, r *analyzeToolReq) (any, error) {
		return s.Analyze(r.Text), nil
	})
}
