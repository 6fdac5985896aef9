// Package schema declares the fixed field layout of a segdex index and
// translates it into a bleve index mapping.
package schema

import (
	"fmt"
	"strings"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/tokenizer"
)

// Version is bumped whenever the mapping produced by Mapping changes in a
// way that makes existing indexes unreadable.
const Version = 1

// FieldRole is the role a field plays in a document.
type FieldRole string

const (
	// RoleIdentifier is the unique, caller-supplied document key.
	RoleIdentifier FieldRole = "identifier"
	// RoleDisplayText is short text returned with results.
	RoleDisplayText FieldRole = "display-text"
	// RoleBodyText is long text that is searched but never returned.
	RoleBodyText FieldRole = "body-text"
)

// Field describes the storage and indexing policy of one field.
type Field struct {
	Name string
	Role FieldRole

	// Indexed makes the field searchable.
	Indexed bool
	// Stored keeps the original value retrievable in results.
	Stored bool
	// Positions records term frequencies and positions (phrase queries).
	Positions bool
	// Analyzer is the registered analyzer name. Empty means the value is
	// indexed as a single exact term.
	Analyzer string
}

// Tokenized reports whether the field goes through an analyzer.
func (f Field) Tokenized() bool {
	return f.Analyzer != ""
}

// Schema is the complete, fixed field set of an index.
type Schema struct {
	Identifier Field
	Title      Field
	Content    Field
}

// Default returns the standard schema: an exact stored id, a tokenized
// stored title, and a tokenized content field that is indexed only.
func Default() Schema {
	return Schema{
		Identifier: Field{
			Name:    "id",
			Role:    RoleIdentifier,
			Indexed: true,
			Stored:  true,
		},
		Title: Field{
			Name:      "title",
			Role:      RoleDisplayText,
			Indexed:   true,
			Stored:    true,
			Positions: true,
			Analyzer:  tokenizer.AnalyzerName,
		},
		Content: Field{
			Name:      "content",
			Role:      RoleBodyText,
			Indexed:   true,
			Stored:    false,
			Positions: true,
			Analyzer:  tokenizer.AnalyzerName,
		},
	}
}

// Fields returns the fields in declaration order.
func (s Schema) Fields() []Field {
	return []Field{s.Identifier, s.Title, s.Content}
}

// SearchFields returns the names of the fields free-text queries target.
func (s Schema) SearchFields() []string {
	return []string{s.Title.Name, s.Content.Name}
}

// StoredFields returns the names of the fields materialized in results.
func (s Schema) StoredFields() []string {
	var names []string
	for _, f := range s.Fields() {
		if f.Stored {
			names = append(names, f.Name)
		}
	}
	return names
}

// Validate checks the schema invariants once at initialization.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, 3)
	for _, f := range s.Fields() {
		if f.Name == "" {
			return invalid("field name is empty", f)
		}
		if strings.HasPrefix(f.Name, "_") {
			return invalid("field names starting with '_' are reserved", f)
		}
		if _, dup := seen[f.Name]; dup {
			return invalid("duplicate field name", f)
		}
		seen[f.Name] = struct{}{}
	}

	id := s.Identifier
	if id.Role != RoleIdentifier {
		return invalid("identifier field must have the identifier role", id)
	}
	if !id.Indexed || !id.Stored {
		return invalid("identifier field must be indexed and stored", id)
	}
	if id.Tokenized() {
		return invalid("identifier field must not be tokenized", id)
	}

	for _, f := range []Field{s.Title, s.Content} {
		if f.Role == RoleIdentifier {
			return invalid("only one identifier field is allowed", f)
		}
		if !f.Indexed || !f.Tokenized() {
			return invalid("text fields must be indexed with an analyzer", f)
		}
	}

	return nil
}

// Fingerprint returns a stable description of the schema. It is persisted
// with the index so a reopen with a different layout is rejected.
func (s Schema) Fingerprint() string {
	parts := []string{fmt.Sprintf("v%d", Version)}
	for _, f := range s.Fields() {
		parts = append(parts, fmt.Sprintf("%s:%s:%s:%s:%s:%s",
			f.Name, f.Role, flag(f.Indexed, "i"), flag(f.Stored, "s"), flag(f.Positions, "p"), f.Analyzer))
	}
	return strings.Join(parts, ";")
}

func flag(b bool, s string) string {
	if b {
		return s
	}
	return "-"
}

func invalid(msg string, f Field) error {
	return sderrors.New(sderrors.ErrCodeSchemaInvalid, msg, nil).
		WithDetail("field", f.Name)
}
