package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "mdaudit-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*mcp.ClientSession, string) {
	t.Helper()
	svc, root := testService(t)
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session, root
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Analyze(t *testing.T) {
	session, _ := mcpSession(t)

	text := mcpCallTool(t, session, "mdaudit_analyze", map[string]any{
		"text": "# Title\n\n[a](http://example.com)\n\n```go\ncode\n```\n",
	})

	var resp struct {
		Title  string `json:"title"`
		Counts struct {
			HeadingCount   int `json:"heading_count"`
			LinkCount      int `json:"link_count"`
			CodeBlockCount int `json:"code_block_count"`
		} `json:"counts"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Title != "Title" {
		t.Errorf("title = %q", resp.Title)
	}
	if resp.Counts.HeadingCount != 1 || resp.Counts.LinkCount != 1 || resp.Counts.CodeBlockCount != 1 {
		t.Errorf("counts = %+v", resp.Counts)
	}
}

func TestMCP_Scan(t *testing.T) {
	session, root := mcpSession(t)
	os.WriteFile(filepath.Join(root, "doc.md"), []byte("# Doc\n\nwords\n"), 0644)

	text := mcpCallTool(t, session, "mdaudit_scan", map[string]any{"root_path": ""})

	var resp struct {
		ScanID string `json:"scan_id"`
		Report struct {
			TotalFiles int `json:"total_files"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Report.TotalFiles != 1 {
		t.Errorf("total_files = %d, want 1", resp.Report.TotalFiles)
	}
	if resp.ScanID == "" {
		t.Error("expected scan_id")
	}
}

func TestMCP_Search(t *testing.T) {
	session, root := mcpSession(t)
	os.WriteFile(filepath.Join(root, "doc.md"), []byte("# Doc\n\n```go\ncode\n```\n"), 0644)

	text := mcpCallTool(t, session, "mdaudit_search", map[string]any{
		"root_path": "",
		"language":  "go",
	})

	var resp struct {
		TotalMatches int `json:"total_matches"`
		Files        []struct {
			RelativePath string `json:"relative_path"`
			Matches      []struct {
				Line int `json:"line"`
			} `json:"matches"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.TotalMatches != 1 || len(resp.Files) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Files[0].Matches[0].Line != 3 {
		t.Errorf("match line = %d, want 3", resp.Files[0].Matches[0].Line)
	}
}

func TestMCP_ScanInvalidPath(t *testing.T) {
	session, _ := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "mdaudit_scan",
		Arguments: map[string]any{"root_path": "no-such-dir"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for invalid path")
	}
}
