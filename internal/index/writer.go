package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/gofrs/flock"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
)

// LockFileName is the advisory lock that keeps a second process from
// attaching a writer to the same index directory.
const LockFileName = "writer.lock"

// Writer applies mutations to an index. Every call commits before it
// returns, so a subsequent search observes the change.
//
// A Writer is safe for concurrent use; mutations are serialized.
// After a commit fails the writer is broken and rejects further
// mutations with ErrCodeWriterBroken. Close it and attach a new one.
type Writer struct {
	h    *Handle
	lock *flock.Flock

	mu     sync.Mutex
	broken error
	closed atomic.Bool
}

// Writer attaches the single writer of the index. It fails with
// ErrCodeWriterBusy while another Writer, in this or another process,
// is attached, and on a read-only handle.
func (h *Handle) Writer() (*Writer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errClosed()
	}
	if h.opts.ReadOnly {
		return nil, sderrors.New(sderrors.ErrCodeWriterBusy, "index is opened read-only", nil).
			WithDetail("path", h.opts.Path)
	}
	if h.writer != nil {
		return nil, errWriterBusy(h.opts.Path)
	}

	var lock *flock.Flock
	if h.opts.Path != "" {
		lock = flock.New(filepath.Join(h.opts.Path, LockFileName))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, sderrors.New(sderrors.ErrCodeIndexUnavailable, "failed to acquire writer lock", err).
				WithDetail("path", h.opts.Path)
		}
		if !locked {
			return nil, errWriterBusy(h.opts.Path)
		}
	}

	w := &Writer{h: h, lock: lock}
	h.writer = w
	h.logger.Debug("writer_attached", slog.String("path", h.opts.Path))
	return w, nil
}

func errWriterBusy(path string) error {
	return sderrors.New(sderrors.ErrCodeWriterBusy, "another writer is attached to the index", nil).
		WithDetail("path", path).
		WithSuggestion("close the other writer or wait for the other process to finish")
}

// Add indexes doc and commits. A document with the same ID is replaced,
// so an ID is never present twice.
func (w *Writer) Add(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return w.apply(ctx, "add", []mutation{{doc: doc}})
}

// Update replaces the document with doc.ID by doc in a single commit.
// If no such document exists it is added. Searchers see either the old
// or the new version, never neither.
func (w *Writer) Update(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return w.apply(ctx, "update", []mutation{{doc: doc}})
}

// Delete removes every document whose ID equals id and commits.
// Deleting an unknown ID is not an error.
func (w *Writer) Delete(ctx context.Context, id string) error {
	if id == "" {
		return sderrors.ValidationError("document id is empty", nil)
	}
	return w.apply(ctx, "delete", []mutation{{doc: Document{ID: id}, delete: true}})
}

// NewBatch returns a batch that groups many mutations into few commits.
func (w *Writer) NewBatch() *Batch {
	return &Batch{w: w, budget: w.h.opts.WriteBufferBytes}
}

// Close detaches the writer from its handle. Safe to call multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	h := w.h
	h.mu.Lock()
	if h.writer == w {
		h.writer = nil
	}
	h.mu.Unlock()

	h.logger.Debug("writer_detached", slog.String("path", h.opts.Path))
	return w.unlock()
}

// release is called by Handle.Close with the handle lock held.
func (w *Writer) release() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	return w.unlock()
}

func (w *Writer) unlock() error {
	if w.lock == nil {
		return nil
	}
	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release writer lock: %w", err)
	}
	return nil
}

type mutation struct {
	doc    Document
	delete bool
}

// apply commits mutations as one engine batch. w.mu is held throughout;
// h.mu only while the engine is looked up, as in Close the order is w.mu
// then h.mu.
func (w *Writer) apply(ctx context.Context, op string, muts []mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() {
		return sderrors.New(sderrors.ErrCodeIndexClosed, "writer is closed", nil)
	}
	if w.broken != nil {
		return sderrors.New(sderrors.ErrCodeWriterBroken, "writer is unusable after a failed commit", w.broken).
			WithSuggestion("close the writer and attach a new one")
	}

	h := w.h
	idx, err := h.engine()
	if err != nil {
		return err
	}

	b := idx.NewBatch()
	for _, m := range muts {
		if m.delete {
			b.Delete(m.doc.ID)
			continue
		}
		if err := b.Index(m.doc.ID, record(h.schema, m.doc)); err != nil {
			return sderrors.New(sderrors.ErrCodeIndexFailed, "failed to map document", err).
				WithDetail("id", m.doc.ID)
		}
	}

	start := time.Now()
	err = idx.Batch(b)
	elapsed := time.Since(start)
	h.opts.Observer.ObserveCommit(op, len(muts), elapsed, err)

	if errors.Is(err, bleve.ErrorIndexClosed) {
		// The handle was closed between the lookup and the commit.
		return errClosed()
	}
	if err != nil {
		w.broken = err
		h.logger.Error("commit_failed",
			slog.String("op", op),
			slog.Int("mutations", len(muts)),
			slog.String("error", err.Error()))
		return sderrors.New(sderrors.ErrCodeIndexFailed, "commit failed", err).
			WithDetail("op", op)
	}

	h.commits.Add(1)
	h.logger.Debug("commit",
		slog.String("op", op),
		slog.Int("mutations", len(muts)),
		slog.Duration("duration", elapsed))
	return nil
}
