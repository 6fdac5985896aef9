package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/internal/output"
)

type searchOptions struct {
	limit  int
	format string // "text", "json"
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search titles and content. Results carry the id and title of each
matching document, most relevant first, at most 50.

Query syntax:
  word            match the word in title or content
  "two words"     match the phrase
  +word -word     require or exclude a word
  title:word      match the word in one field (id, title, content)`,
		Example: `  segdex search 天安门
  segdex search '+rust -java' --limit 5
  segdex search 'title:"release notes"' --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("invalid format %q (use: text, json)", opts.format)
			}

			h, err := root.openReader()
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			results, err := h.SearchN(cmd.Context(), query, opts.limit)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if opts.format == "json" {
				return out.JSON(results)
			}
			out.Results(query, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", index.MaxResults, "Maximum number of results (1-50)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}
