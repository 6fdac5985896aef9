package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/segdex/internal/index"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, writable bool) (*Server, *index.Handle) {
	t.Helper()

	h, err := index.Open(index.Options{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	var w *index.Writer
	if writable {
		w, err = h.Writer()
		require.NoError(t, err)
	}

	srv, err := NewServer(h, w, quietLogger())
	require.NoError(t, err)
	return srv, h
}

// connect returns a client session talking to srv over in-memory transports.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "segdex-test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestNewServer_RequiresHandle(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := newTestServer(t, true)

	names := make([]string, 0)
	for _, tool := range srv.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}

	assert.Equal(t, []string{"search", "add_document", "update_document", "delete_document", "index_status"}, names)
}

func TestServer_Handlers(t *testing.T) {
	srv, _ := newTestServer(t, true)
	ctx := context.Background()

	// Given: a document added through the tool handler
	_, out, err := srv.addHandler(ctx, nil, DocumentInput{ID: "1", Title: "Hello", Content: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, MutationOutput{ID: "1", Operation: "add"}, out)

	// When: searching
	res, found, err := srv.searchHandler(ctx, nil, SearchInput{Query: "world"})
	require.NoError(t, err)

	// Then: the result is projected and rendered as text
	assert.Equal(t, []index.Result{{ID: "1", Title: "Hello"}}, found.Results)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "**Hello**")

	// When: replacing then deleting
	_, _, err = srv.updateHandler(ctx, nil, DocumentInput{ID: "1", Title: "Bye", Content: "farewell"})
	require.NoError(t, err)
	_, found, err = srv.searchHandler(ctx, nil, SearchInput{Query: "world"})
	require.NoError(t, err)
	assert.Empty(t, found.Results)

	_, out, err = srv.deleteHandler(ctx, nil, DeleteInput{ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "delete", out.Operation)

	// Then: the index is empty
	_, status, err := srv.indexStatusHandler(ctx, nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.Stats.Documents)
	assert.True(t, status.Writable)
}

func TestServer_SearchValidation(t *testing.T) {
	srv, _ := newTestServer(t, true)

	_, _, err := srv.searchHandler(context.Background(), nil, SearchInput{Query: "   "})
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)

	_, _, err = srv.searchHandler(context.Background(), nil, SearchInput{Query: "author:bob"})
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServer_ReadOnly(t *testing.T) {
	srv, _ := newTestServer(t, false)

	_, _, err := srv.addHandler(context.Background(), nil, DocumentInput{ID: "1"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeWriterBusy, mcpErr.Code)

	_, status, err := srv.indexStatusHandler(context.Background(), nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.False(t, status.Writable)
}

func TestServer_EmptyIDIsInvalidParams(t *testing.T) {
	srv, _ := newTestServer(t, true)

	_, _, err := srv.addHandler(context.Background(), nil, DocumentInput{Title: "no id"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0, 50, 1, 50))
	assert.Equal(t, 1, clampLimit(-3, 50, 1, 50))
	assert.Equal(t, 50, clampLimit(500, 50, 1, 50))
	assert.Equal(t, 7, clampLimit(7, 50, 1, 50))
}

func TestServer_OverTransport(t *testing.T) {
	srv, _ := newTestServer(t, true)
	session := connect(t, srv)
	ctx := context.Background()

	// Given: the client sees every tool
	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, tool := range listed.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{ToolSearch, ToolAddDocument, ToolUpdateDocument, ToolDeleteDocument, ToolIndexStatus} {
		assert.True(t, names[want], "missing tool %s", want)
	}

	// When: adding and searching through the protocol
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolAddDocument,
		Arguments: map[string]any{"id": "42", "title": "北京", "content": "我爱北京天安门"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearch,
		Arguments: map[string]any{"query": "天安门"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	// Then: the hit comes back in the text content
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "`42`")
}

func TestServer_ToolErrorOverTransport(t *testing.T) {
	srv, _ := newTestServer(t, true)
	session := connect(t, srv)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolSearch,
		Arguments: map[string]any{"query": "author:bob"},
	})

	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_StatsResource(t *testing.T) {
	srv, _ := newTestServer(t, true)
	_, _, err := srv.addHandler(context.Background(), nil, DocumentInput{ID: "a", Title: "A"})
	require.NoError(t, err)

	res, err := srv.handleStatsResource(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, StatsURI, res.Contents[0].URI)

	var out IndexStatusOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	assert.Equal(t, uint64(1), out.Stats.Documents)
	assert.True(t, out.Stats.InMemory)
}

func TestServer_ClosedIndex(t *testing.T) {
	srv, h := newTestServer(t, false)
	require.NoError(t, h.Close())

	_, _, err := srv.indexStatusHandler(context.Background(), nil, IndexStatusInput{})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeIndexUnavailable, mcpErr.Code)
}
