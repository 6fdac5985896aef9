package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/segdex/internal/output"
	"github.com/Aman-CERP/segdex/internal/watcher"
)

type watchOptions struct {
	debounce time.Duration
	poll     bool
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the index in sync with a directory of JSON files",
		Long: `Ingest every document file under dir, then follow changes until
interrupted. A created or modified file upserts its documents and deletes
the ones it no longer contains; a deleted file deletes its documents.

Hidden directories and the index directory are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			h, w, err := root.openWriter()
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			wopts := watcher.Options{
				DebounceWindow: opts.debounce,
				Extensions:     root.cfg.Watch.Extensions,
				ForcePolling:   opts.poll,
			}
			if wopts.DebounceWindow == 0 {
				wopts.DebounceWindow = root.cfg.DebounceDuration()
			}
			if root.cfg.Index.Path != "" {
				if abs, err := filepath.Abs(root.cfg.Index.Path); err == nil {
					wopts.SkipDirs = []string{abs}
				}
			}

			fw, err := watcher.New(wopts)
			if err != nil {
				return err
			}
			defer func() { _ = fw.Stop() }()

			out := output.New(cmd.OutOrStdout())
			out.Statusf("👀", "Watching %s (Ctrl+C to stop)", dir)

			syncer := watcher.NewSyncer(w, dir, wopts, root.logger)
			if err := syncer.Run(cmd.Context(), fw); err != nil {
				return err
			}

			out.Successf("Stopped watching; %d file(s) tracked", syncer.Files())
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Event debounce window (default: watch.debounce)")
	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll for changes instead of using file system notifications")

	return cmd
}
