package schema

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/tokenizer"
)

// Mapping builds the bleve index mapping for the schema.
// Only the title and content fields feed the _all composite field, which is
// what unqualified query terms are matched against.
func (s Schema) Mapping() (*mapping.IndexMappingImpl, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	im := bleve.NewIndexMapping()
	if err := tokenizer.Configure(im); err != nil {
		return nil, sderrors.New(sderrors.ErrCodeTokenizerSetup, "failed to register tokenizer", err)
	}
	im.DefaultAnalyzer = tokenizer.AnalyzerName
	im.IndexDynamic = false
	im.StoreDynamic = false
	im.DocValuesDynamic = false

	dm := bleve.NewDocumentStaticMapping()
	for _, f := range s.Fields() {
		dm.AddFieldMappingsAt(f.Name, fieldMapping(f))
	}
	im.DefaultMapping = dm

	return im, nil
}

func fieldMapping(f Field) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = f.Analyzer
	if !f.Tokenized() {
		fm.Analyzer = keyword.Name
	}
	fm.Index = f.Indexed
	fm.Store = f.Stored
	fm.IncludeTermVectors = f.Positions
	fm.IncludeInAll = f.Role != RoleIdentifier
	fm.DocValues = false
	return fm
}
