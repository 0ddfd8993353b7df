package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders compact single-line records for interactive use.
type consoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level *slog.LevelVar
	attrs []slog.Attr
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')
	b.WriteString(record.Message)

	attrs := make([]slog.Attr, 0, record.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrOrder(attrs[i].Key) < attrOrder(attrs[j].Key)
	})
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value.Resolve())
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{mu: h.mu, w: h.w, level: h.level, attrs: merged}
}

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

// attrOrder keeps identity fields ahead of incidental detail on each line.
func attrOrder(key string) int {
	switch key {
	case FieldComponent:
		return 0
	case FieldJobID:
		return 1
	case FieldSessionID:
		return 2
	case FieldStage:
		return 3
	default:
		return 4
	}
}
