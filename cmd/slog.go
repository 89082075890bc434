package cmd

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes every record to all handlers. The shared level gates
// records before any handler sees them.
type teeHandler struct {
	level    slog.Leveler
	handlers []slog.Handler
}

func newTeeHandler(level slog.Leveler, handlers ...slog.Handler) *teeHandler {
	return &teeHandler{level: level, handlers: handlers}
}

func (t *teeHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= t.level.Level()
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{level: t.level, handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{level: t.level, handlers: next}
}
