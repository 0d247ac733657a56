package logger

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultBufferLines = 1000

// RingBuffer keeps the most recent sanitized log lines. The core plugin
// serves them as the recent-logs resource.
type RingBuffer struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultBufferLines
	}
	return &RingBuffer{lines: make([]string, capacity)}
}

func (b *RingBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[b.next] = line
	b.next++
	if b.next == len(b.lines) {
		b.next = 0
		b.full = true
	}
}

// Tail returns up to n lines, oldest first, together with the number of
// stored lines and the capacity. n <= 0 returns everything stored.
func (b *RingBuffer) Tail(n int) (lines []string, size, capacity int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	size, capacity = b.len(), len(b.lines)
	if n <= 0 || n > size {
		n = size
	}
	lines = make([]string, 0, n)
	for i := b.next - n; i < b.next; i++ {
		lines = append(lines, b.lines[(i+capacity)%capacity])
	}
	return lines, size, capacity
}

func (b *RingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.len()
}

func (b *RingBuffer) len() int {
	if b.full {
		return len(b.lines)
	}
	return b.next
}

// bufferingHandler tees records into the ring buffer before handing them on.
// Lines are sanitized on the way in so the buffer can be served as a resource.
type bufferingHandler struct {
	next   slog.Handler
	buffer *RingBuffer
	attrs  []slog.Attr
	group  string
}

func newBufferingHandler(next slog.Handler, buffer *RingBuffer) slog.Handler {
	return &bufferingHandler{next: next, buffer: buffer}
}

func (h *bufferingHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *bufferingHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format(time.RFC3339))
	buf.WriteString(" ")
	buf.WriteString(r.Level.String())
	buf.WriteString(" ")
	buf.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		a = redactAttr(nil, a)
		buf.WriteString(" ")
		if h.group != "" {
			buf.WriteString(h.group)
			buf.WriteString(".")
		}
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	h.buffer.Append(SanitizeLine(buf.String()))
	return h.next.Handle(ctx, r)
}

func (h *bufferingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &bufferingHandler{next: h.next.WithAttrs(attrs), buffer: h.buffer, attrs: merged, group: h.group}
}

func (h *bufferingHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &bufferingHandler{next: h.next.WithGroup(name), buffer: h.buffer, attrs: h.attrs, group: group}
}
