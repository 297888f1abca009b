package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler delivers every record to each of its handlers that accepts the level.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler skips nil handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	f := &FanoutHandler{handlers: make([]slog.Handler, 0, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			f.handlers = append(f.handlers, h)
		}
	}
	return f
}

func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going when a handler fails and returns the joined errors.
func (f *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *FanoutHandler) derive(fn func(slog.Handler) slog.Handler) *FanoutHandler {
	out := &FanoutHandler{handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}

// SessionGroup is the group session attributes are logged under.
const SessionGroup = "session"

// ContextProvider returns the attributes describing the current session, e.g. the
// loaded preset and gun count. It is called once per record.
type ContextProvider func() []slog.Attr

// SessionHandler adds the provider's attributes to every record under SessionGroup.
type SessionHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewSessionHandler wraps inner. A nil provider adds nothing.
func NewSessionHandler(inner slog.Handler, provider ContextProvider) *SessionHandler {
	return &SessionHandler{inner: inner, provider: provider}
}

func (h *SessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *SessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			args := make([]any, len(attrs))
			for i, a := range attrs {
				args[i] = a
			}
			r.AddAttrs(slog.Group(SessionGroup, args...))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *SessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *SessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SessionHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
