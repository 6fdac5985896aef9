package mcp

import "github.com/Aman-CERP/segdex/internal/index"

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"query string: terms, \"phrases\", +required, -excluded, title:term"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default and maximum 50"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []index.Result `json:"results" jsonschema:"matching documents ordered by relevance"`
}

// DocumentInput defines the input schema for add_document and update_document.
type DocumentInput struct {
	ID      string `json:"id" jsonschema:"document identifier"`
	Title   string `json:"title,omitempty" jsonschema:"document title"`
	Content string `json:"content,omitempty" jsonschema:"document body"`
}

// DeleteInput defines the input schema for the delete_document tool.
type DeleteInput struct {
	ID string `json:"id" jsonschema:"identifier of the document to delete"`
}

// MutationOutput reports a committed mutation.
type MutationOutput struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Stats    index.Stats `json:"stats"`
	Writable bool        `json:"writable"`
	Version  string      `json:"version"`
}
