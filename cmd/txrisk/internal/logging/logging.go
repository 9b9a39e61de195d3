// Package logging builds the structured logger and carries per-analysis ids.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const analysisIDKey contextKey = "analysis_id"

// New creates a structured logger writing to w.
// format is "json" or "text"; unknown levels fall back to info.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: ParseLevel(level) == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewAnalysisID returns a fresh id for one analyzed transaction.
func NewAnalysisID() string {
	return uuid.NewString()
}

// WithAnalysisID adds an analysis id to the context
func WithAnalysisID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, analysisIDKey, id)
}

// AnalysisID extracts the analysis id from context
func AnalysisID(ctx context.Context) string {
	if id, ok := ctx.Value(analysisIDKey).(string); ok {
		return id
	}
	return ""
}

// L returns the default logger, tagged with the analysis id when ctx has one.
func L(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := AnalysisID(ctx); id != "" {
		return logger.With("analysis_id", id)
	}
	return logger
}
