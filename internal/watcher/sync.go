package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/internal/ingest"
)

// Syncer applies file events to an index writer.
//
// It remembers which document IDs each file produced. When a file changes,
// IDs it no longer contains are deleted; when it is removed, all of its IDs
// are deleted. An ID is owned by the file that last produced it, so removing
// one file never deletes a document another file has since provided.
type Syncer struct {
	w      *index.Writer
	root   string
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	files  map[string]map[string]struct{}
	owners map[string]string
}

// NewSyncer creates a Syncer for files under root.
func NewSyncer(w *index.Writer, root string, opts Options, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Syncer{
		w:      w,
		root:   root,
		opts:   opts.WithDefaults(),
		logger: logger,
		files:  make(map[string]map[string]struct{}),
		owners: make(map[string]string),
	}
}

// Scan ingests every matching file under root and returns the number of
// files read.
func (s *Syncer) Scan(ctx context.Context) (int, error) {
	var rels []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if s.opts.skipDir(s.root, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.opts.matchFile(path) {
			if rel, err := filepath.Rel(s.root, path); err == nil {
				rels = append(rels, rel)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.Strings(rels)

	events := make([]FileEvent, 0, len(rels))
	for _, rel := range rels {
		events = append(events, FileEvent{Path: rel, Operation: OpCreate})
	}
	return len(rels), s.Apply(ctx, events)
}

// Apply processes a batch of events. Errors for individual files are
// combined; a fatal writer error stops the batch.
func (s *Syncer) Apply(ctx context.Context, events []FileEvent) error {
	var result *multierror.Error
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch ev.Operation {
		case OpCreate, OpModify:
			err = s.syncFile(ctx, ev.Path)
		case OpDelete, OpRename:
			err = s.removeFile(ctx, ev.Path)
		}
		if err == nil {
			continue
		}

		s.logger.Error("watch_sync_failed",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()),
			slog.String("error", err.Error()))
		if stopsSync(err) {
			return err
		}
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// stopsSync reports whether err leaves the writer unusable.
func stopsSync(err error) bool {
	return sderrors.IsFatal(err) ||
		sderrors.HasCode(err, sderrors.ErrCodeIndexClosed) ||
		sderrors.HasCode(err, sderrors.ErrCodeIndexFailed)
}

func (s *Syncer) syncFile(ctx context.Context, rel string) error {
	docs, err := ingest.LoadFile(filepath.Join(s.root, rel))
	if sderrors.HasCode(err, sderrors.ErrCodeFileNotFound) {
		return s.removeFile(ctx, rel)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(docs))
	b := s.w.NewBatch()
	for _, doc := range docs {
		ids[doc.ID] = struct{}{}
		if err := b.Update(ctx, doc); err != nil {
			return err
		}
	}
	for id := range s.files[rel] {
		if _, still := ids[id]; !still && s.owners[id] == rel {
			if err := b.Delete(ctx, id); err != nil {
				return err
			}
		}
	}
	if err := b.Commit(ctx); err != nil {
		return err
	}

	for id := range s.files[rel] {
		if _, still := ids[id]; !still && s.owners[id] == rel {
			delete(s.owners, id)
		}
	}
	for id := range ids {
		if prev, ok := s.owners[id]; ok && prev != rel {
			delete(s.files[prev], id)
		}
		s.owners[id] = rel
	}
	s.files[rel] = ids

	s.logger.Debug("watch_file_synced",
		slog.String("path", rel),
		slog.Int("documents", len(ids)))
	return nil
}

func (s *Syncer) removeFile(ctx context.Context, rel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.files[rel]
	if !ok {
		return nil
	}

	b := s.w.NewBatch()
	for id := range ids {
		if s.owners[id] == rel {
			if err := b.Delete(ctx, id); err != nil {
				return err
			}
		}
	}
	if err := b.Commit(ctx); err != nil {
		return err
	}

	for id := range ids {
		if s.owners[id] == rel {
			delete(s.owners, id)
		}
	}
	delete(s.files, rel)

	s.logger.Debug("watch_file_removed",
		slog.String("path", rel),
		slog.Int("documents", len(ids)))
	return nil
}

// Files returns the number of files currently tracked.
func (s *Syncer) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Run starts w on the Syncer's root, ingests the existing files, and then
// applies changes until ctx is cancelled. Per-file failures are logged and
// watching continues; a fatal writer error ends Run.
func (s *Syncer) Run(ctx context.Context, w *Watcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, s.root) }()

	select {
	case <-w.Ready():
	case err := <-startErr:
		return err
	}

	n, err := s.Scan(ctx)
	if err != nil && stopsSync(err) {
		return err
	}
	s.logger.Info("watch_started",
		slog.String("root", s.root),
		slog.String("mode", w.Mode()),
		slog.Int("files", n))

	errs := w.Errors()
	for {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				err := <-startErr
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if err := s.Apply(ctx, batch); err != nil && stopsSync(err) {
				_ = w.Stop()
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}
