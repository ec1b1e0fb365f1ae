// Package logutil configures fatlib's slog output.
package logutil

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/fatlib/fatlib/envconfig"
)

// NewLogger returns a text logger writing to w. Source locations are
// trimmed to the file base name.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Level returns the log level selected by the environment: debug when
// FATLIB_DEBUG is set, info otherwise.
func Level() slog.Level {
	if envconfig.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
