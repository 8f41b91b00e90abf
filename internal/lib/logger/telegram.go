package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Messenger interface {
	SendMessage(msg string)
}

// TelegramHandler forwards records at or above level to an operator chat,
// while passing every record on to the wrapped handler.
type TelegramHandler struct {
	handler   slog.Handler
	messenger Messenger
	level     slog.Level
	attrs     []slog.Attr
}

func SetupTelegramHandler(log *slog.Logger, messenger Messenger, level slog.Level) *slog.Logger {
	return slog.New(&TelegramHandler{
		handler:   log.Handler(),
		messenger: messenger,
		level:     level,
	})
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level && h.messenger != nil {
		go h.messenger.SendMessage(h.format(r))
	}
	return h.handler.Handle(ctx, r)
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &TelegramHandler{
		handler:   h.handler.WithAttrs(attrs),
		messenger: h.messenger,
		level:     h.level,
		attrs:     merged,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	return &TelegramHandler{
		handler:   h.handler.WithGroup(name),
		messenger: h.messenger,
		level:     h.level,
		attrs:     h.attrs,
	}
}

func (h *TelegramHandler) format(r slog.Record) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", r.Level.String(), r.Message))
	for _, a := range h.attrs {
		sb.WriteString(fmt.Sprintf("\n%s: %s", a.Key, a.Value.String()))
	}
	r.Attrs(func(a slog.Attr) bool {
		sb.WriteString(fmt.Sprintf("\n%s: %s", a.Key, a.Value.String()))
		return true
	})
	return sb.String()
}
