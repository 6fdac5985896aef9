package logging

import (
	"log/slog"
)

// SetupStdioMode initializes logging for the stdio MCP transport.
// stdout carries JSON-RPC exclusively, so logs go to the file only.
func SetupStdioMode(level string) (func(), error) {
	if level == "" {
		level = "debug"
	}
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("stdio_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
