package sketchindex

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with sketchindex-specific context. This
// provides structured logging with consistent field names across build,
// search, and (de)serialize operations.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler. If handler is
// nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithDim adds a dimension field to the logger.
func (l *Logger) WithDim(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dim", dim)}
}

// LogBuild logs an index build operation.
func (l *Logger) LogBuild(ctx context.Context, kind string, numEntries, numIDs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed", "kind", kind, "entries", numEntries, "ids", numIDs, "error", err)
		return
	}
	l.InfoContext(ctx, "build completed", "kind", kind, "entries", numEntries, "ids", numIDs)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, numCands, numResults int, err error) {
	if err != nil {
		l.WarnContext(ctx, "search aborted", "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "k", k, "cands", numCands, "results", numResults)
}

// LogSearchAbort logs the recoverable SIG_LIMIT policy decision (see
// ErrSearchAbort) at warning level.
func (l *Logger) LogSearchAbort(ctx context.Context, k int, estimated uint64) {
	l.WarnContext(ctx, "signature enumeration budget exceeded",
		"k", k, "estimated_signatures", estimated, "limit", SigLimit)
}

// LogSerialize logs an index serialisation operation.
func (l *Logger) LogSerialize(ctx context.Context, kind string, bytesWritten int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "serialize failed", "kind", kind, "error", err)
		return
	}
	l.InfoContext(ctx, "serialize completed", "kind", kind, "bytes", bytesWritten)
}

// LogDeserialize logs an index deserialisation operation.
func (l *Logger) LogDeserialize(ctx context.Context, kind string, numEntries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "deserialize failed", "kind", kind, "error", err)
		return
	}
	l.DebugContext(ctx, "deserialize completed", "kind", kind, "entries", numEntries)
}
