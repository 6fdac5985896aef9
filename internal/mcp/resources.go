package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsURI is the URI of the index statistics resource.
const StatsURI = "segdex://stats"

// registerResources registers the index statistics resource.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "stats",
			URI:         StatsURI,
			Description: "Index location, document count and schema fingerprint",
			MIMEType:    "application/json",
		},
		s.handleStatsResource,
	)
}

// handleStatsResource renders the current index statistics as JSON.
func (s *Server) handleStatsResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.status()
	if err != nil {
		return nil, MapError(err)
	}

	content, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      StatsURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
