// Package extensions holds optional Reactor extensions: cross-cutting
// behavior layered on top of Get/Set/Subscribe/Flush via the Extension
// interface, the same composition point the core package exposes for
// operation middleware.
package extensions

import (
	"context"
	"log/slog"
	"time"

	tritium "github.com/clsnc/TritiumDB"
)

// LoggingExtension logs every Reactor operation: completed operations at
// Debug level, failed ones at Error level.
type LoggingExtension struct {
	tritium.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a logging extension writing through logger.
// A nil logger falls back to slog.Default().
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExtension{
		BaseExtension: tritium.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *tritium.Operation) (any, error) {
	start := time.Now()
	result, err := next()
	duration := time.Since(start)

	attrs := []any{"op", string(op.Kind), "duration", duration}
	if !op.Expr.IsZero() {
		attrs = append(attrs, "expr", op.Expr.String())
	}

	if err != nil {
		e.logger.Error("tritium operation failed", append(attrs, "error", err.Error())...)
	} else {
		e.logger.Debug("tritium operation completed", attrs...)
	}

	return result, err
}
