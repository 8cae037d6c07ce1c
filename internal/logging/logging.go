package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init はログレベルと形式（text または json）を指定して既定のロガーを差し替えます。
func Init(level, format string) *slog.Logger {
	return InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter は出力先を指定して既定のロガーを差し替えます。
func InitWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel はログレベル文字列を解釈します。未知の値は info として扱います。
func ParseLevel(level string) slog.Level {
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
