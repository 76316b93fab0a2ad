// Package logging configures the process-wide slog handler.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Setup installs a slog handler on stderr at the given level and returns
// the logger. When stderr is a terminal, the text handler includes source
// positions for easier debugging; in non-interactive environments (systemd,
// containers) it stays compact so log collectors can parse it.
func Setup(level string) *slog.Logger {
	interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: interactive,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
