package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// consoleHandler renders records as single human-readable lines:
//
//	15:04:05 INFO  [stage] message key=value ...
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(out io.Writer, level slog.Leveler) *consoleHandler {
	return &consoleHandler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", record.Level.String()))

	merged := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	merged = append(merged, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		merged = append(merged, attr)
		return true
	})

	if subject := subjectLine(merged); subject != "" {
		b.WriteString(" [")
		b.WriteString(subject)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(record.Message)

	rest := make([]string, 0, len(merged))
	for _, attr := range merged {
		if attr.Key == FieldStage || attr.Key == FieldScene || attr.Key == FieldComponent {
			continue
		}
		rest = append(rest, attr.Key+"="+attr.Value.String())
	}
	sort.Strings(rest)
	for _, kv := range rest {
		b.WriteByte(' ')
		b.WriteString(kv)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func subjectLine(attrs []slog.Attr) string {
	var stage, scene, component string
	for _, attr := range attrs {
		switch attr.Key {
		case FieldStage:
			stage = attr.Value.String()
		case FieldScene:
			scene = attr.Value.String()
		case FieldComponent:
			component = attr.Value.String()
		}
	}
	parts := make([]string, 0, 2)
	if stage != "" {
		parts = append(parts, stage)
	} else if component != "" {
		parts = append(parts, component)
	}
	if scene != "" {
		parts = append(parts, "scene "+scene)
	}
	return strings.Join(parts, " · ")
}
