// Package logging provides structured slog-based logging for ragdocs.
// Logs are written as JSON lines to a size-rotated file under
// ~/.ragdocs/logs/, optionally mirrored to stderr. The MCP stdio
// transport owns stdout, so nothing here ever writes there.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is where the JSON log lines go.
	FilePath string
	// MaxSizeMB is the rotation threshold per file.
	MaxSizeMB int
	// MaxFiles is how many rotated files to keep.
	MaxFiles int
	// WriteToStderr mirrors log lines to stderr. Keep this off when
	// stdout or stderr carry protocol traffic.
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig at debug level.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

func (cfg Config) output(writer *RotatingWriter) io.Writer {
	if cfg.WriteToStderr {
		return io.MultiWriter(writer, os.Stderr)
	}
	return writer
}

// Setup opens the rotating log file and builds the logger. The
// returned cleanup flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(cfg.output(writer), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}))

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// parseLevel converts a config string to a slog level. Unknown values
// fall back to info rather than erroring; a typo in a config file
// should not take logging down.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
