package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/segdex/internal/output"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := root.openReader()
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			st, err := h.Stats()
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(st)
			}

			path := st.Path
			if st.InMemory {
				path = "(in memory)"
			}
			out.Field("Index", path)
			out.Field("Documents", st.Documents)
			out.Field("Schema", st.Schema)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
