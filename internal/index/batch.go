package index

import (
	"context"
)

// Batch collects mutations and commits them together. When the buffered
// documents exceed the write buffer budget the batch commits on its own,
// so a large ingest never holds more than the budget in memory.
//
// Mutations to the same ID apply in the order they were added.
// A Batch is not safe for concurrent use.
type Batch struct {
	w       *Writer
	budget  int
	pending []mutation
	bytes   int
	commits int
}

// Add queues doc for indexing, replacing any document with the same ID.
func (b *Batch) Add(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return b.push(ctx, mutation{doc: doc})
}

// Update queues a replacement of doc.ID.
func (b *Batch) Update(ctx context.Context, doc Document) error {
	return b.Add(ctx, doc)
}

// Delete queues removal of id.
func (b *Batch) Delete(ctx context.Context, id string) error {
	return b.push(ctx, mutation{doc: Document{ID: id}, delete: true})
}

func (b *Batch) push(ctx context.Context, m mutation) error {
	if m.doc.ID == "" {
		return (Document{}).Validate()
	}
	b.pending = append(b.pending, m)
	b.bytes += m.doc.size()
	if b.bytes >= b.budget {
		return b.Commit(ctx)
	}
	return nil
}

// Len returns the number of uncommitted mutations.
func (b *Batch) Len() int {
	return len(b.pending)
}

// Commits returns how many commits the batch has made so far.
func (b *Batch) Commits() int {
	return b.commits
}

// Commit applies the queued mutations. An empty batch is a no-op.
// On failure the queued mutations are kept.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.w.apply(ctx, "batch", b.pending); err != nil {
		return err
	}
	b.pending = b.pending[:0]
	b.bytes = 0
	b.commits++
	return nil
}
