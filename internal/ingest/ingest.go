// Package ingest decodes documents from JSON files and applies them to an
// index writer.
//
// A file holds a single JSON object, a JSON array of objects, or JSON Lines.
// Each object needs an "id" (or "article_id"); "title" and "content" are
// optional. Numeric identifiers are kept in their literal form.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/index"
)

// Extensions lists the file extensions ingest understands.
var Extensions = []string{".json", ".jsonl", ".ndjson"}

// Supported reports whether path has an ingestible extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

type rawDocument struct {
	ID        any    `json:"id"`
	ArticleID any    `json:"article_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

func (r rawDocument) document() index.Document {
	id := identifier(r.ID)
	if id == "" {
		id = identifier(r.ArticleID)
	}
	return index.Document{ID: id, Title: r.Title, Content: r.Content}
}

func identifier(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// Decode reads every document from r. name labels errors.
func Decode(r io.Reader, name string) ([]index.Document, error) {
	br := bufio.NewReader(r)
	dec := json.NewDecoder(br)
	dec.UseNumber()

	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, readError(name, err)
	}

	var raws []rawDocument
	if first == '[' {
		if err := dec.Decode(&raws); err != nil {
			return nil, decodeError(name, 0, err)
		}
	} else {
		for n := 0; ; n++ {
			var raw rawDocument
			err := dec.Decode(&raw)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, decodeError(name, n, err)
			}
			raws = append(raws, raw)
		}
	}

	docs := make([]index.Document, 0, len(raws))
	for n, raw := range raws {
		doc := raw.document()
		if err := doc.Validate(); err != nil {
			return nil, sderrors.ValidationError("document has no id", err).
				WithDetail("file", name).
				WithDetail("record", fmt.Sprint(n))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func readError(name string, err error) error {
	return sderrors.New(sderrors.ErrCodeFileCorrupt, fmt.Sprintf("failed to read %s", name), err).
		WithDetail("file", name)
}

func decodeError(name string, record int, err error) error {
	return sderrors.New(sderrors.ErrCodeFileCorrupt, fmt.Sprintf("invalid document JSON in %s", name), err).
		WithDetail("file", name).
		WithDetail("record", fmt.Sprint(record))
}

// LoadFile decodes the documents in the file at path.
func LoadFile(path string) ([]index.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, sderrors.New(sderrors.ErrCodeFileNotFound, fmt.Sprintf("document file %s not found", path), err).
				WithDetail("file", path)
		case os.IsPermission(err):
			return nil, sderrors.New(sderrors.ErrCodeFilePermission, fmt.Sprintf("cannot read document file %s", path), err).
				WithDetail("file", path)
		default:
			return nil, readError(path, err)
		}
	}
	defer func() { _ = f.Close() }()

	return Decode(f, path)
}

// LoadFiles decodes paths concurrently with at most workers files in
// flight. Documents are returned in path order, then file order.
func LoadFiles(ctx context.Context, paths []string, workers int) ([]index.Document, error) {
	if workers < 1 {
		workers = 1
	}

	perFile := make([][]index.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := LoadFile(path)
			if err != nil {
				return err
			}
			perFile[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, docs := range perFile {
		total += len(docs)
	}
	all := make([]index.Document, 0, total)
	for _, docs := range perFile {
		all = append(all, docs...)
	}
	return all, nil
}

// Apply upserts docs through w. With batched set the documents go through a
// Batch and commit at the write buffer budget and once at the end;
// otherwise every document is its own commit. Returns the number of commits.
func Apply(ctx context.Context, w *index.Writer, docs []index.Document, batched bool) (int, error) {
	if !batched {
		for i, doc := range docs {
			if err := w.Update(ctx, doc); err != nil {
				return i, err
			}
		}
		return len(docs), nil
	}

	b := w.NewBatch()
	for _, doc := range docs {
		if err := b.Update(ctx, doc); err != nil {
			return b.Commits(), err
		}
	}
	if err := b.Commit(ctx); err != nil {
		return b.Commits(), err
	}
	return b.Commits(), nil
}
