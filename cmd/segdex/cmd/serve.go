package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/httpapi"
	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/internal/mcp"
	"github.com/Aman-CERP/segdex/internal/metrics"
)

type serveOptions struct {
	transport string
	addr      string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over HTTP or MCP stdio",
		Long: `Serve the index until interrupted.

--transport http   REST API with Prometheus metrics at /metrics
--transport stdio  Model Context Protocol server for AI assistants

Over stdio, stdout carries JSON-RPC only; logs go to ~/.segdex/logs/.
If another process has the index open read-only, stdio mode serves
searches only.`,
		Example: `  segdex serve --addr 127.0.0.1:9000
  segdex serve --transport stdio`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			transport := opts.transport
			if transport == "" {
				transport = root.cfg.Server.Transport
			}
			addr := opts.addr
			if addr == "" {
				addr = root.cfg.Server.Addr
			}

			switch transport {
			case "http":
				return runServeHTTP(cmd, root, addr)
			case "stdio":
				return runServeStdio(cmd, root)
			default:
				return sderrors.ConfigError(fmt.Sprintf("unknown transport %q (supported: http, stdio)", transport), nil)
			}
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: http, stdio (default: server.transport)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default: server.addr)")

	return cmd
}

func runServeHTTP(cmd *cobra.Command, root *rootOptions, addr string) error {
	m := metrics.New()

	h, err := index.Open(root.indexOptions(m))
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	w, err := h.Writer()
	if err != nil {
		return err
	}

	m.RegisterDocumentGauge(func() float64 {
		st, err := h.Stats()
		if err != nil {
			return 0
		}
		return float64(st.Documents)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", root.cfg.Index.Path, addr)
	return httpapi.NewServer(h, w, m, root.logger).Serve(cmd.Context(), addr)
}

func runServeStdio(cmd *cobra.Command, root *rootOptions) error {
	h, w, err := root.openWriter()
	if err != nil {
		if !sderrors.HasCode(err, sderrors.ErrCodeWriterBusy) {
			return err
		}
		// Another process shares the index read-only; serve searches only.
		root.logger.Warn("mcp_read_only", slog.String("reason", err.Error()))
		if h, err = root.openReader(); err != nil {
			return err
		}
		w = nil
	}
	defer func() { _ = h.Close() }()

	srv, err := mcp.NewServer(h, w, root.logger)
	if err != nil {
		return err
	}
	return srv.Serve(cmd.Context())
}
