// Package tokenizer binds a UAX#29 word segmenter to the bleve analysis
// registry under a fixed logical name, so that indexing and query parsing
// resolve the same segmentation for text in scripts without spaces.
package tokenizer

import (
	"iter"
	"sync"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/segment"
)

const (
	// Name is the registry name of the segmentation tokenizer.
	Name = "segdex_segment"

	// AnalyzerName is the name of the analyzer used by tokenized fields.
	AnalyzerName = "segdex_text"

	// BigramFilterName is the name of the CJK bigram filter instance.
	// It keeps unigrams so single ideographs stay searchable.
	BigramFilterName = "segdex_cjk_bigram"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// Register adds the segmentation tokenizer to the bleve registry.
// It must run before an index using AnalyzerName is created or opened.
// Safe to call repeatedly; the registration happens once per process.
func Register() error {
	registerOnce.Do(func() {
		registerErr = registry.RegisterTokenizer(Name, constructor)
	})
	return registerErr
}

// Configure registers the bigram filter and the analyzer on an index mapping.
// The analyzer chain is: segmenter, cjk_width, lowercase, cjk_bigram.
// The tokenizer is registered first since analyzers resolve it eagerly.
func Configure(m *mapping.IndexMappingImpl) error {
	if err := Register(); err != nil {
		return err
	}

	if err := m.AddCustomTokenFilter(BigramFilterName, map[string]interface{}{
		"type":           cjk.BigramName,
		"output_unigram": true,
	}); err != nil {
		return err
	}

	return m.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": Name,
		"token_filters": []string{
			cjk.WidthName,
			lowercase.Name,
			BigramFilterName,
		},
	})
}

func constructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &Segmenter{}, nil
}

// Segmenter splits text into word segments following Unicode UAX#29.
// Ideographic and kana runs are tagged analysis.Ideographic so the CJK
// filters downstream can recombine them.
type Segmenter struct{}

// Tokenize implements analysis.Tokenizer.
func (s *Segmenter) Tokenize(input []byte) analysis.TokenStream {
	rv := make(analysis.TokenStream, 0, len(input)/4+1)

	seg := segment.NewWordSegmenterDirect(input)
	start := 0
	pos := 1
	for seg.Segment() {
		b := seg.Bytes()
		end := start + len(b)
		if typ := seg.Type(); typ != segment.None {
			rv = append(rv, &analysis.Token{
				Term:     b,
				Start:    start,
				End:      end,
				Position: pos,
				Type:     tokenType(typ),
			})
			pos++
		}
		start = end
	}

	return rv
}

// Tokens returns the word segments of text as a lazy sequence.
// The sequence is finite and can be ranged over more than once.
func (s *Segmenter) Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seg := segment.NewWordSegmenterDirect([]byte(text))
		for seg.Segment() {
			if seg.Type() == segment.None {
				continue
			}
			if !yield(string(seg.Bytes())) {
				return
			}
		}
	}
}

func tokenType(segmentType int) analysis.TokenType {
	switch segmentType {
	case segment.Ideo, segment.Kana:
		return analysis.Ideographic
	case segment.Number:
		return analysis.Numeric
	default:
		return analysis.AlphaNumeric
	}
}
