package index

import (
	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/schema"
)

// Document is an input document. ID is opaque and must not be empty.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Result is one search hit projected to the stored fields.
// Results are ordered by relevance; the score itself is not exposed.
type Result struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Validate checks that the document can be indexed.
func (d Document) Validate() error {
	if d.ID == "" {
		return sderrors.ValidationError("document id is empty", nil).
			WithDetail("title", d.Title)
	}
	return nil
}

// size estimates the buffered bytes of the document.
func (d Document) size() int {
	return len(d.ID) + len(d.Title) + len(d.Content)
}

// record translates the document into the engine representation.
func record(s schema.Schema, d Document) map[string]interface{} {
	return map[string]interface{}{
		s.Identifier.Name: d.ID,
		s.Title.Name:      d.Title,
		s.Content.Name:    d.Content,
	}
}
