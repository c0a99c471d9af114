package logbuf

import (
	"context"
	"log/slog"
)

// Handler is an slog.Handler that records every entry into a Buffer and
// passes it on to an inner handler subject to that handler's level.
type Handler struct {
	inner  slog.Handler
	buf    *Buffer
	attrs  []slog.Attr
	prefix string // dotted group path applied to later attrs
}

// NewHandler creates a handler that writes to both buf and inner.
func NewHandler(inner slog.Handler, buf *Buffer) *Handler {
	return &Handler{inner: inner, buf: buf}
}

// Enabled reports true for every level so the buffer sees debug entries
// even when stdout is filtered.
func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.buf.Write(Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})

	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

// flatten writes a into dst, expanding groups into dotted keys.
func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if v.Kind() == slog.KindGroup {
		if a.Key == "" {
			key = prefix
		}
		for _, ga := range v.Group() {
			flatten(dst, key, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	raw := v.Any()
	// errors marshal to {} otherwise
	if err, ok := raw.(error); ok {
		raw = err.Error()
	}
	dst[key] = raw
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := h.attrs[:len(h.attrs):len(h.attrs)]
	for _, a := range attrs {
		if h.prefix != "" && a.Key != "" {
			a = slog.Attr{Key: h.prefix + "." + a.Key, Value: a.Value}
		}
		bound = append(bound, a)
	}
	return &Handler{inner: h.inner.WithAttrs(attrs), buf: h.buf, attrs: bound, prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	prefix := name
	if h.prefix != "" {
		prefix = h.prefix + "." + name
	}
	return &Handler{inner: h.inner.WithGroup(name), buf: h.buf, attrs: h.attrs, prefix: prefix}
}
