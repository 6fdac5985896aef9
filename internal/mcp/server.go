package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/pkg/version"
)

// Tool names.
const (
	ToolSearch         = "search"
	ToolAddDocument    = "add_document"
	ToolUpdateDocument = "update_document"
	ToolDeleteDocument = "delete_document"
	ToolIndexStatus    = "index_status"
)

// Server is the MCP server for segdex.
// It exposes one index handle to AI clients as tools.
type Server struct {
	mcp    *mcp.Server
	handle *index.Handle
	writer *index.Writer
	logger *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolSearch,
		Description: "Full-text search over the document index. Returns up to 50 documents (id and title) ordered by relevance. Supports quoted phrases, +required and -excluded terms, and title: or content: scoping. Chinese text is segmented into words.",
	},
	{
		Name:        ToolAddDocument,
		Description: "Add a document with an id, title and content. An existing document with the same id is replaced. The document is searchable once the call returns.",
	},
	{
		Name:        ToolUpdateDocument,
		Description: "Replace the document with the given id. If no such document exists it is added.",
	},
	{
		Name:        ToolDeleteDocument,
		Description: "Delete the document with the given id. Deleting an unknown id succeeds.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report the index location, document count, commit count and whether the index accepts writes.",
	},
}

// NewServer creates a new MCP server. w may be nil, in which case the
// mutation tools report that the index is read-only.
func NewServer(h *index.Handle, w *index.Writer, logger *slog.Logger) (*Server, error) {
	if h == nil {
		return nil, errors.New("index handle is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		handle: h,
		writer: w,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func describe(name string) string {
	for _, t := range tools {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearch, Description: describe(ToolSearch)}, s.searchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolAddDocument, Description: describe(ToolAddDocument)}, s.addHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolUpdateDocument, Description: describe(ToolUpdateDocument)}, s.updateHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolDeleteDocument, Description: describe(ToolDeleteDocument)}, s.deleteHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolIndexStatus, Description: describe(ToolIndexStatus)}, s.indexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// searchHandler is the MCP SDK handler for the search tool.
func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	limit := clampLimit(input.Limit, index.MaxResults, 1, index.MaxResults)

	start := time.Now()
	requestID := generateRequestID()

	results, err := s.handle.SearchN(ctx, input.Query, limit)
	if err != nil {
		s.logger.Debug("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(results)))

	return textResult(FormatSearchResults(input.Query, results)), SearchOutput{Results: results}, nil
}

// addHandler is the MCP SDK handler for the add_document tool.
func (s *Server) addHandler(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (
	*mcp.CallToolResult,
	MutationOutput,
	error,
) {
	w, err := s.requireWriter()
	if err != nil {
		return nil, MutationOutput{}, err
	}
	doc := index.Document{ID: input.ID, Title: input.Title, Content: input.Content}
	if err := w.Add(ctx, doc); err != nil {
		return nil, MutationOutput{}, MapError(err)
	}
	return nil, MutationOutput{ID: input.ID, Operation: "add"}, nil
}

// updateHandler is the MCP SDK handler for the update_document tool.
func (s *Server) updateHandler(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (
	*mcp.CallToolResult,
	MutationOutput,
	error,
) {
	w, err := s.requireWriter()
	if err != nil {
		return nil, MutationOutput{}, err
	}
	doc := index.Document{ID: input.ID, Title: input.Title, Content: input.Content}
	if err := w.Update(ctx, doc); err != nil {
		return nil, MutationOutput{}, MapError(err)
	}
	return nil, MutationOutput{ID: input.ID, Operation: "update"}, nil
}

// deleteHandler is the MCP SDK handler for the delete_document tool.
func (s *Server) deleteHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (
	*mcp.CallToolResult,
	MutationOutput,
	error,
) {
	w, err := s.requireWriter()
	if err != nil {
		return nil, MutationOutput{}, err
	}
	if err := w.Delete(ctx, input.ID); err != nil {
		return nil, MutationOutput{}, MapError(err)
	}
	return nil, MutationOutput{ID: input.ID, Operation: "delete"}, nil
}

// indexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) indexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.status()
	if err != nil {
		return nil, nil, MapError(err)
	}
	return textResult(FormatStatus(out)), out, nil
}

func (s *Server) status() (*IndexStatusOutput, error) {
	st, err := s.handle.Stats()
	if err != nil {
		return nil, err
	}
	return &IndexStatusOutput{
		Stats:    st,
		Writable: s.writer != nil,
		Version:  version.Version,
	}, nil
}

func (s *Server) requireWriter() (*index.Writer, error) {
	if s.writer == nil {
		return nil, &MCPError{
			Code:    ErrCodeWriterBusy,
			Message: "Index is open read-only; another process holds the writer.",
		}
	}
	return s.writer, nil
}

// Serve runs the server over stdio until ctx is canceled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return fmt.Errorf("mcp server: %w", err)
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// clampLimit applies the default for zero and bounds the rest to [lo, hi].
func clampLimit(n, def, lo, hi int) int {
	if n == 0 {
		return def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
