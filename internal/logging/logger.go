// Package logging configures the process-wide zerolog root logger. Packages
// derive component loggers from it via With().Str("component", ...).
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"wakepark/internal/config"

	"github.com/rs/zerolog"
)

// New builds the root logger from config. The returned closer is non-nil only
// for file output and must be closed on shutdown.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	sink, closer, err := resolveSink(cfg)
	if err != nil {
		return nil, nil, err
	}

	if normalize(cfg.Format) == "console" {
		sink = zerolog.ConsoleWriter{Out: sink, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	root := zerolog.New(sink).
		Level(resolveLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &root, closer, nil
}

// resolveSink maps the configured output name to a writer. Unknown values
// fall back to stdout.
func resolveSink(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

// resolveLevel parses the configured level, defaulting to info on anything
// unparseable so a bad config never silences the app.
func resolveLevel(raw string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(normalize(raw)); err == nil {
		return parsed
	}
	return zerolog.InfoLevel
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
