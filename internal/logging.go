package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// openLogFile returns the destination for modes that own stdout: the
// configured log file, or io.Discard when none is set.
func openLogFile(cfg *Config) (io.Writer, func(), error) {
	if cfg.App.LogFile == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
