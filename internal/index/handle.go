package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hashicorp/go-multierror"
	bolt "go.etcd.io/bbolt"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/schema"
	"github.com/Aman-CERP/segdex/internal/tokenizer"
)

// schemaKey is the internal key holding the schema fingerprint.
var schemaKey = []byte("segdex_schema")

// Handle owns an open index: the engine resource, its schema, and the
// query parser. At most one Writer is attached at a time.
type Handle struct {
	mu      sync.RWMutex
	idx     bleve.Index
	mapping *mapping.IndexMappingImpl
	schema  schema.Schema
	parser  *Parser
	opts    Options
	logger  *slog.Logger
	closed  bool

	writer  *Writer
	commits atomic.Uint64
}

// Stats describes the current state of an index.
type Stats struct {
	Path      string `json:"path"`
	InMemory  bool   `json:"in_memory"`
	Documents uint64 `json:"documents"`
	Commits   uint64 `json:"commits"`
	Schema    string `json:"schema"`
	ReadOnly  bool   `json:"read_only"`
}

// Open opens the index at opts.Path, creating it if the directory does not
// exist or is empty. An empty path creates an in-memory index.
//
// Open fails with a setup error when the tokenizer cannot be registered,
// the directory cannot be used, or it holds an index with another schema.
// It fails with ErrCodeWriterBusy when another process keeps the directory
// open past opts.LockTimeout. On failure nothing is left open.
func Open(opts Options) (*Handle, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := schema.Default()
	if err := tokenizer.Register(); err != nil {
		return nil, sderrors.SetupError(sderrors.ErrCodeTokenizerSetup, "failed to register tokenizer", err)
	}
	im, err := s.Mapping()
	if err != nil {
		return nil, err
	}

	idx, created, err := openOrCreate(opts, im)
	if err != nil {
		return nil, err
	}

	if err := checkSchema(idx, s, created); err != nil {
		_ = idx.Close()
		return nil, err
	}

	parser, err := NewParser(s, opts.QueryCacheSize)
	if err != nil {
		_ = idx.Close()
		return nil, sderrors.InternalError("failed to build query parser", err)
	}

	h := &Handle{
		idx:     idx,
		mapping: im,
		schema:  s,
		parser:  parser,
		opts:    opts,
		logger:  opts.Logger,
	}

	h.logger.Info("index_opened",
		slog.String("path", opts.Path),
		slog.Bool("created", created),
		slog.Bool("read_only", opts.ReadOnly),
		slog.Int("write_buffer_bytes", opts.WriteBufferBytes))

	return h, nil
}

func openOrCreate(opts Options, im *mapping.IndexMappingImpl) (bleve.Index, bool, error) {
	path := opts.Path
	if path == "" {
		idx, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, false, sderrors.SetupError(sderrors.ErrCodeIndexUnavailable, "failed to create in-memory index", err)
		}
		return idx, true, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, sderrors.SetupError(sderrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot create parent of %s", path), err)
	}

	// Scorch holds a bolt file lock for the life of the index: exclusive
	// for read-write, shared for read-only.
	runtime := map[string]interface{}{"bolt_timeout": opts.LockTimeout.String()}
	if opts.ReadOnly {
		runtime["read_only"] = true
	}

	idx, err := bleve.OpenUsing(path, runtime)
	switch {
	case err == nil:
		return idx, false, nil
	case errors.Is(err, bolt.ErrTimeout):
		return nil, false, errIndexInUse(path, opts.ReadOnly)
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist),
		errors.Is(err, bleve.ErrorIndexMetaMissing) && isEmptyDir(path):
		// A new index is always created read-write; a read-only handle
		// over it still refuses writers.
		idx, err = bleve.NewUsing(path, im, bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore,
			map[string]interface{}{"bolt_timeout": opts.LockTimeout.String()})
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, false, errIndexInUse(path, opts.ReadOnly)
		}
		if err != nil {
			return nil, false, sderrors.SetupError(sderrors.ErrCodeIndexUnavailable,
				fmt.Sprintf("cannot create index at %s", path), err)
		}
		return idx, true, nil
	case errors.Is(err, bleve.ErrorIndexMetaCorrupt):
		return nil, false, sderrors.SetupError(sderrors.ErrCodeCorruptIndex,
			fmt.Sprintf("index metadata at %s is corrupt", path), err)
	default:
		return nil, false, sderrors.SetupError(sderrors.ErrCodeIndexUnavailable,
			fmt.Sprintf("cannot open index at %s", path), err).WithDetail("path", path)
	}
}

func errIndexInUse(path string, readOnly bool) error {
	msg := "index is open in another process"
	if readOnly {
		msg = "index is open for writing in another process"
	}
	return sderrors.New(sderrors.ErrCodeWriterBusy, msg, nil).
		WithDetail("path", path).
		WithSuggestion("stop the other segdex process, or use its HTTP API while it runs")
}

func isEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) == 0
}

// checkSchema stamps a new index with the schema fingerprint, or compares
// the stamp of an existing one.
func checkSchema(idx bleve.Index, s schema.Schema, created bool) error {
	want := s.Fingerprint()
	if created {
		if err := idx.SetInternal(schemaKey, []byte(want)); err != nil {
			return sderrors.SetupError(sderrors.ErrCodeIndexUnavailable, "failed to record schema", err)
		}
		return nil
	}

	got, err := idx.GetInternal(schemaKey)
	if err != nil {
		return sderrors.SetupError(sderrors.ErrCodeIndexUnavailable, "failed to read schema", err)
	}
	if string(got) != want {
		return sderrors.New(sderrors.ErrCodeSchemaMismatch, "index was built with an incompatible schema", nil).
			WithDetail("expected", want).
			WithDetail("found", string(got)).
			WithSuggestion("rebuild the index in a new directory")
	}
	return nil
}

// Schema returns the schema the index was opened with.
func (h *Handle) Schema() schema.Schema {
	return h.schema
}

// Parser returns the query parser.
func (h *Handle) Parser() *Parser {
	return h.parser
}

// Search runs text against the latest committed snapshot and returns up to
// the configured maximum of results, best first.
func (h *Handle) Search(ctx context.Context, text string) ([]Result, error) {
	return h.SearchN(ctx, text, h.opts.MaxResults)
}

// SearchN is Search with a caller limit, clamped to the configured maximum.
func (h *Handle) SearchN(ctx context.Context, text string, limit int) ([]Result, error) {
	start := time.Now()
	results, err := h.search(ctx, text, limit)
	h.opts.Observer.ObserveSearch(time.Since(start), len(results), err)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("search_complete",
		slog.String("query", text),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}

func (h *Handle) search(ctx context.Context, text string, limit int) ([]Result, error) {
	if limit <= 0 || limit > h.opts.MaxResults {
		limit = h.opts.MaxResults
	}

	idx, err := h.engine()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return []Result{}, nil
	}

	q, err := h.parser.Parse(text)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = h.schema.StoredFields()

	res, err := idx.SearchInContext(ctx, req)
	if errors.Is(err, bleve.ErrorIndexClosed) {
		return nil, errClosed()
	}
	if err != nil {
		return nil, sderrors.New(sderrors.ErrCodeSearchFailed, "search failed", err).
			WithDetail("query", text)
	}

	titleField := h.schema.Title.Name
	idField := h.schema.Identifier.Name
	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id := stringField(hit.Fields, idField)
		if id == "" {
			id = hit.ID
		}
		results = append(results, Result{
			ID:    id,
			Title: stringField(hit.Fields, titleField),
		})
	}
	return results, nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// Analyze returns the terms the index would produce for text.
func (h *Handle) Analyze(text string) ([]string, error) {
	ts, err := h.mapping.AnalyzeText(tokenizer.AnalyzerName, []byte(text))
	if err != nil {
		return nil, sderrors.InternalError("failed to analyze text", err)
	}
	terms := make([]string, 0, len(ts))
	for _, t := range ts {
		terms = append(terms, string(t.Term))
	}
	return terms, nil
}

// Stats returns document and commit counts.
func (h *Handle) Stats() (Stats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return Stats{}, errClosed()
	}

	count, err := h.idx.DocCount()
	if err != nil {
		return Stats{}, sderrors.InternalError("failed to count documents", err)
	}
	return Stats{
		Path:      h.opts.Path,
		InMemory:  h.opts.Path == "",
		Documents: count,
		Commits:   h.commits.Load(),
		Schema:    h.schema.Fingerprint(),
		ReadOnly:  h.opts.ReadOnly,
	}, nil
}

// Close releases the attached writer, if any, and closes the engine.
// Every mutation has already been committed, so nothing buffered is lost.
// Safe to call multiple times.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var result *multierror.Error
	if h.writer != nil {
		if err := h.writer.release(); err != nil {
			result = multierror.Append(result, err)
		}
		h.writer = nil
	}
	if err := h.idx.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close index: %w", err))
	}

	h.logger.Info("index_closed", slog.String("path", h.opts.Path))
	return result.ErrorOrNil()
}

// engine returns the open engine. The handle lock is held only for the
// check: the engine serializes its own Close against in-flight calls, so
// a long search or commit never holds h.mu and never queues new readers
// behind Writer or Close.
func (h *Handle) engine() (bleve.Index, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, errClosed()
	}
	return h.idx, nil
}

func errClosed() error {
	return sderrors.New(sderrors.ErrCodeIndexClosed, "index is closed", nil)
}
