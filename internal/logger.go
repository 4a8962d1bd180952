package internal

import (
	"io"
	"log/slog"
	"time"
)

// NewLogger builds the process logger. Production writes JSON; everything
// else writes text. Every record carries the service and component names.
func NewLogger(w io.Writer, env string, level string, component string) *slog.Logger {
	var h slog.Handler

	var l = new(slog.LevelVar) // Info by default
	switch level {
	case "debug":
		l.Set(slog.LevelDebug)
	case "warn":
		l.Set(slog.LevelWarn)
	case "error":
		l.Set(slog.LevelError)
	}

	switch env {
	case "prod":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: l,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String("time", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     l,
			AddSource: level == "debug",
		})
	}

	logger := slog.New(h).With(slog.String("service", "billbook"))
	if component != "" {
		logger = logger.With(slog.String("component", component))
	}
	return logger
}
