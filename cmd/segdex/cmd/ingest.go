package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/segdex/internal/ingest"
	"github.com/Aman-CERP/segdex/internal/output"
)

type ingestOptions struct {
	batch   bool
	workers int
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Load documents from JSON files",
		Long: `Load documents from .json files (one object or an array) and .jsonl
files (one object per line). Each object needs an "id" (or "article_id");
"title" and "content" are optional. Existing documents with the same id
are replaced.

Files are decoded concurrently, then written in file order. With --batch
(the default) ingest.batch_size documents are committed at a time;
otherwise each document is its own commit.`,
		Example: `  segdex ingest articles.jsonl
  segdex ingest data/*.json --workers 8
  segdex ingest small.json --batch=false`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			workers := opts.workers
			if workers <= 0 {
				workers = root.cfg.Ingest.Workers
			}

			docs, err := ingest.LoadFiles(ctx, args, workers)
			if err != nil {
				return err
			}

			h, w, err := root.openWriter()
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			out := output.New(cmd.OutOrStdout())
			showProgress := output.IsTerminal(cmd.OutOrStdout())

			commits := 0
			if !opts.batch {
				commits, err = ingest.Apply(ctx, w, docs, false)
				if err != nil {
					return err
				}
			} else {
				size := root.cfg.Ingest.BatchSize
				for lo := 0; lo < len(docs); lo += size {
					hi := min(lo+size, len(docs))
					n, err := ingest.Apply(ctx, w, docs[lo:hi], true)
					commits += n
					if err != nil {
						return fmt.Errorf("ingest stopped after %d of %d documents: %w", lo, len(docs), err)
					}
					if showProgress {
						out.Progress(hi, len(docs), "documents")
					}
				}
			}

			root.logger.Info("ingest_complete",
				slog.Int("files", len(args)),
				slog.Int("documents", len(docs)),
				slog.Int("commits", commits),
				slog.Duration("duration", time.Since(start)))
			out.Successf("Ingested %d document(s) from %d file(s) in %d commit(s)", len(docs), len(args), commits)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.batch, "batch", true, "Commit documents in batches")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent file decoders (default: ingest.workers)")

	return cmd
}
