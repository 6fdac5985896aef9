package index

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/blevesearch/vellum/regexp"
	lru "github.com/hashicorp/golang-lru/v2"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/schema"
)

// Parser turns free-text query strings into engine queries.
//
// The grammar is bleve's query string syntax: bare terms, "quoted phrases",
// +required and -excluded clauses, and field:term scoping. Unscoped terms
// match the title and content fields. Field references outside the schema
// are rejected as syntax errors.
//
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	fields map[string]struct{}
	cache  *lru.Cache[string, query.Query]
}

// allField is the composite field that unscoped terms are matched against.
const allField = "_all"

// NewParser builds a parser for the searchable fields of s.
// cacheSize of zero disables the parsed query cache.
func NewParser(s schema.Schema, cacheSize int) (*Parser, error) {
	fields := map[string]struct{}{
		"":                {},
		allField:          {},
		s.Identifier.Name: {},
	}
	for _, f := range s.SearchFields() {
		fields[f] = struct{}{}
	}

	p := &Parser{fields: fields}
	if cacheSize > 0 {
		cache, err := lru.New[string, query.Query](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Parse parses text. Errors carry ErrCodeInvalidQuery.
func (p *Parser) Parse(text string) (query.Query, error) {
	if p.cache != nil {
		if q, ok := p.cache.Get(text); ok {
			return q, nil
		}
	}

	q, err := query.NewQueryStringQuery(text).Parse()
	if err != nil {
		return nil, sderrors.QueryError(text, err)
	}
	if err := p.check(q); err != nil {
		return nil, sderrors.QueryError(text, err)
	}

	if p.cache != nil {
		p.cache.Add(text, q)
	}
	return q, nil
}

// check walks the query tree and rejects what the engine would only
// fail on at search time: field references outside the schema and
// regular expressions the term automaton cannot compile.
func (p *Parser) check(q query.Query) error {
	switch v := q.(type) {
	case *query.BooleanQuery:
		for _, sub := range []query.Query{v.Must, v.Should, v.MustNot} {
			if sub == nil {
				continue
			}
			if err := p.check(sub); err != nil {
				return err
			}
		}
		return nil
	case *query.ConjunctionQuery:
		for _, sub := range v.Conjuncts {
			if err := p.check(sub); err != nil {
				return err
			}
		}
		return nil
	case *query.DisjunctionQuery:
		for _, sub := range v.Disjuncts {
			if err := p.check(sub); err != nil {
				return err
			}
		}
		return nil
	case *query.RegexpQuery:
		// The engine strips a leading anchor before compiling.
		if _, err := regexp.New(strings.TrimPrefix(v.Regexp, "^")); err != nil {
			return fmt.Errorf("invalid regular expression /%s/: %w", v.Regexp, err)
		}
	}

	if fq, ok := q.(query.FieldableQuery); ok {
		if _, known := p.fields[fq.Field()]; !known {
			return fmt.Errorf("unknown field %q", fq.Field())
		}
	}
	return nil
}
