package cmd

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/internal/output"
)

type documentOp string

const (
	opAdd    documentOp = "add"
	opUpdate documentOp = "update"
)

type documentOptions struct {
	title   string
	content string
}

func newDocumentCmd(root *rootOptions, op documentOp) *cobra.Command {
	var opts documentOptions

	short := "Add a document to the index"
	long := `Add a document. A document that already has the id is replaced.
The document is searchable as soon as the command returns.`
	verb := "Added"
	if op == opUpdate {
		short = "Replace a document in the index"
		long = `Replace the document with the given id. When no document has the id,
it is added.`
		verb = "Updated"
	}

	cmd := &cobra.Command{
		Use:   string(op) + " <id>",
		Short: short,
		Long:  long,
		Example: `  segdex ` + string(op) + ` 42 --title "我爱北京" --content "我爱北京天安门"
  cat body.txt | segdex ` + string(op) + ` 42 --title "Notes" --content -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), opts.content)
			if err != nil {
				return err
			}
			doc := index.Document{ID: args[0], Title: opts.title, Content: content}
			if err := runDocument(cmd.Context(), root, op, doc); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("%s document %s", verb, doc.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Document title")
	cmd.Flags().StringVarP(&opts.content, "content", "c", "", `Document content ("-" reads stdin)`)

	return cmd
}

func runDocument(ctx context.Context, root *rootOptions, op documentOp, doc index.Document) error {
	h, w, err := root.openWriter()
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	if op == opUpdate {
		return w.Update(ctx, doc)
	}
	return w.Add(ctx, doc)
}

// readContent returns flag, or stdin when flag is "-".
func readContent(stdin io.Reader, flag string) (string, error) {
	if flag != "-" {
		return flag, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", sderrors.ValidationError("failed to read content from stdin", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete documents from the index",
		Long: `Delete documents by id. All ids are removed in one commit.
Unknown ids are not an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, w, err := root.openWriter()
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			b := w.NewBatch()
			for _, id := range args {
				if err := b.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			if err := b.Commit(cmd.Context()); err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Successf("Deleted %d document(s)", len(args))
			return nil
		},
	}
}
