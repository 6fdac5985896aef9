// Package cmd provides the CLI commands for segdex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/segdex/internal/config"
	sderrors "github.com/Aman-CERP/segdex/internal/errors"
	"github.com/Aman-CERP/segdex/internal/index"
	"github.com/Aman-CERP/segdex/internal/logging"
	"github.com/Aman-CERP/segdex/pkg/version"
)

// rootOptions holds the persistent flags and the state built from them
// before a subcommand runs.
type rootOptions struct {
	debug      bool
	indexPath  string
	configPath string

	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

// NewRootCmd creates the root command for the segdex CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "segdex",
		Short: "Full-text document index with word segmentation",
		Long: `segdex maintains a full-text index of documents with an id, a title
and a content body. Text is segmented into words before indexing, so
languages written without spaces, such as Chinese, are searchable by word.

Every add, update and delete is committed before the command returns.
Searches return at most 50 documents, ordered by relevance.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		PersistentPostRun: opts.teardown,
	}

	cmd.SetVersionTemplate("segdex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.segdex/logs/")
	cmd.PersistentFlags().StringVar(&opts.indexPath, "index", "", "Index directory (overrides index.path)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (replaces .segdex.yaml lookup)")

	cmd.AddCommand(newDocumentCmd(opts, opAdd))
	cmd.AddCommand(newDocumentCmd(opts, opUpdate))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command until completion or SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, sderrors.FormatForCLI(err))
	}
	return err
}

// setup loads configuration and installs the logger. Logs go to the log
// file; --debug raises the level to debug and also writes to stderr.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg

	var cleanup func()
	switch {
	case o.debug:
		cleanup, err = logging.SetupDefault(logging.DebugConfig())
	case isStdioServe(cmd, cfg):
		cleanup, err = logging.SetupStdioMode(cfg.Server.LogLevel)
	default:
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Server.LogLevel
		logCfg.WriteToStderr = false
		cleanup, err = logging.SetupDefault(logCfg)
	}
	if err != nil {
		// An unwritable log directory must not block index operations.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: file logging disabled: %v\n", err)
		cleanup = func() {}
	}
	o.cleanup = cleanup
	o.logger = slog.Default()

	if o.debug {
		o.logger.Debug("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func (o *rootOptions) teardown(_ *cobra.Command, _ []string) {
	if o.cleanup != nil {
		o.cleanup()
		o.cleanup = nil
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cwd, werr := os.Getwd()
		if werr != nil {
			return nil, sderrors.ConfigError("failed to get working directory", werr)
		}
		cfg, err = config.Load(cwd)
	}
	if err != nil {
		return nil, err
	}
	if o.indexPath != "" {
		cfg.Index.Path = o.indexPath
	}
	return cfg, nil
}

// indexOptions translates the loaded configuration into index options.
func (o *rootOptions) indexOptions(obs index.Observer) index.Options {
	return index.Options{
		Path:             o.cfg.Index.Path,
		WriteBufferBytes: o.cfg.WriteBufferBytes(),
		MaxResults:       o.cfg.Search.MaxResults,
		QueryCacheSize:   o.cfg.Search.QueryCacheSize,
		Logger:           o.logger,
		Observer:         obs,
	}
}

func (o *rootOptions) openIndex() (*index.Handle, error) {
	return index.Open(o.indexOptions(nil))
}

// openReader opens the index read-only, so several read commands can share
// the directory at once.
func (o *rootOptions) openReader() (*index.Handle, error) {
	opts := o.indexOptions(nil)
	opts.ReadOnly = true
	return index.Open(opts)
}

// openWriter opens the index and attaches its writer. Closing the handle
// releases both.
func (o *rootOptions) openWriter() (*index.Handle, *index.Writer, error) {
	h, err := o.openIndex()
	if err != nil {
		return nil, nil, err
	}
	w, err := h.Writer()
	if err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	return h, w, nil
}

func isStdioServe(cmd *cobra.Command, cfg *config.Config) bool {
	if cmd.Name() != "serve" {
		return false
	}
	transport, _ := cmd.Flags().GetString("transport")
	if transport == "" {
		transport = cfg.Server.Transport
	}
	return transport == "stdio"
}
