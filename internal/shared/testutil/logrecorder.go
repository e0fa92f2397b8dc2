package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// LogRecord is one captured record. Attribute keys from WithGroup are
// dotted, e.g. "report.rows_out".
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordBuffer struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is an slog.Handler that keeps every record at every level.
// Loggers derived with With or WithGroup write into the same buffer.
type LogRecorder struct {
	buf    *recordBuffer
	attrs  []slog.Attr
	prefix string
	t      testing.TB
}

// NewTestLogger returns a logger and the recorder behind it. Records are
// echoed through t.Logf so they show up on failure.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{buf: &recordBuffer{}, t: t}
	return slog.New(rec), rec
}

func (l *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (l *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(l.attrs)+r.NumAttrs())
	for _, a := range l.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[l.prefix+a.Key] = a.Value.Any()
		return true
	})

	l.buf.mu.Lock()
	l.buf.records = append(l.buf.records, LogRecord{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs})
	l.buf.mu.Unlock()

	if l.t != nil {
		l.t.Logf("%s %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (l *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *l
	next.attrs = append(append([]slog.Attr(nil), l.attrs...), prefixed(l.prefix, attrs)...)
	return &next
}

func (l *LogRecorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return l
	}
	next := *l
	next.prefix = l.prefix + name + "."
	return &next
}

func prefixed(prefix string, attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		a.Key = prefix + a.Key
		out[i] = a
	}
	return out
}

// Records returns a copy of everything captured so far.
func (l *LogRecorder) Records() []LogRecord {
	l.buf.mu.Lock()
	defer l.buf.mu.Unlock()
	return append([]LogRecord(nil), l.buf.records...)
}

func (l *LogRecorder) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range l.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

func (l *LogRecorder) Count() int {
	l.buf.mu.Lock()
	defer l.buf.mu.Unlock()
	return len(l.buf.records)
}

// ContainsMessage reports whether any record's message contains substr.
func (l *LogRecorder) ContainsMessage(substr string) bool {
	for _, r := range l.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// AssertLogContains fails t unless a record at level has a message
// containing substr.
func AssertLogContains(t testing.TB, rec *LogRecorder, level slog.Level, substr string) bool {
	t.Helper()
	var messages []string
	for _, r := range rec.ByLevel(level) {
		if strings.Contains(r.Message, substr) {
			return true
		}
		messages = append(messages, r.Message)
	}
	return assert.Fail(t, "log message not found",
		"want %q at %s, have %q", substr, level, messages)
}

// AssertLogAttr fails t unless some record carries key=value.
func AssertLogAttr(t testing.TB, rec *LogRecorder, key string, value any) bool {
	t.Helper()
	for _, r := range rec.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return assert.Fail(t, "log attribute not found", "want %s=%v", key, value)
}
