package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vectorfox/internal/apperr"
	"github.com/starford/vectorfox/internal/upstream"
)

func testServer(t *testing.T, stream, sources string) *Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, stream)
	})
	mux.HandleFunc("/sources", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sources)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(upstream.NewClient(srv.URL), nil)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "ask_docs":
		result, err = srv.askDocs(ctx, req)
	case "list_sources":
		result, err = srv.listSources(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s returned error: %v", name, err)
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestAskDocs(t *testing.T) {
	srv := testServer(t,
		"data: Open the **console**.\n\ndata:\n\ndata: Done.\n\ndata: [DONE]\n\n",
		`["https://docs.example/a","https://docs.example/b"]`)

	result := callTool(t, srv, "ask_docs", map[string]interface{}{"query": "console?"})
	if result.IsError {
		t.Fatalf("ask_docs failed: %s", resultText(t, result))
	}

	want := "Open the **console**.\n\nDone.\n\nSources:\n- https://docs.example/a\n- https://docs.example/b\n"
	if got := resultText(t, result); got != want {
		t.Errorf("text =\n%q\nwant\n%q", got, want)
	}
}

func TestAskDocs_StreamInterrupted(t *testing.T) {
	srv := testServer(t, "data: partial\n\n", `[]`)
	result := callTool(t, srv, "ask_docs", map[string]interface{}{"query": "q"})
	if !result.IsError {
		t.Fatal("expected tool error for truncated stream")
	}
	if !strings.Contains(resultText(t, result), apperr.ErrStreamInterrupted.Error()) {
		t.Errorf("error text = %q", resultText(t, result))
	}
}

func TestAskDocs_MissingQuery(t *testing.T) {
	srv := testServer(t, "data: [DONE]\n\n", `[]`)
	result := callTool(t, srv, "ask_docs", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected error for missing query")
	}
}

func TestListSources(t *testing.T) {
	srv := testServer(t, "data: [DONE]\n\n", `["https://docs.example/a","https://docs.example/a"]`)
	result := callTool(t, srv, "list_sources", map[string]interface{}{"query": "q"})
	if result.IsError {
		t.Fatalf("list_sources failed: %s", resultText(t, result))
	}

	var urls []string
	if err := json.Unmarshal([]byte(resultText(t, result)), &urls); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("urls = %v, duplicates should be kept", urls)
	}
}

func TestListSources_Malformed(t *testing.T) {
	srv := testServer(t, "data: [DONE]\n\n", `{"not":"a list"}`)
	result := callTool(t, srv, "list_sources", map[string]interface{}{"query": "q"})
	if !result.IsError {
		t.Fatal("expected error for malformed sources")
	}
}

func TestAnswerFormatResource(t *testing.T) {
	srv := testServer(t, "data: [DONE]\n\n", `[]`)
	contents, err := srv.readAnswerFormat(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type %T", contents[0])
	}
	if text.URI != AnswerFormatURI || !strings.Contains(text.Text, SourcesHeading) {
		t.Errorf("resource = %+v", text)
	}
}
