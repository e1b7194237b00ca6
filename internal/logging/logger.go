// Package logging provides leveled logging and run tracing for polstress.
// Operational output goes to a leveled slog.Logger on stderr; per-run
// traces go to a JSONL file (.polstress/runs.jsonl) via RunLogger.
package logging

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug. At trace level, LLM prompts/responses and
// per-step world state are included in the run log.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level. Recognized values are
// "trace", "debug", "info", "warn" and "error" (case-insensitive);
// anything else falls back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// traceLabel renames the synthetic trace level in handler output, which
// slog would otherwise print as "DEBUG-4".
func traceLabel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: traceLabel,
	})
	return slog.New(h)
}

// RunLogger appends structured per-run events to a JSONL file. Writes are
// buffered until Close. Safe for concurrent use, and all methods are
// no-ops on a nil receiver.
type RunLogger struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// NewRunLogger opens dir/runs.jsonl for append. At "info" level (the
// default) it returns nil and creates nothing; debug and trace enable the
// file. Open failures also yield nil, which callers can use safely.
func NewRunLogger(dir string, level string) *RunLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "runs.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	buf := bufio.NewWriter(f)
	return &RunLogger{file: f, buf: buf, enc: json.NewEncoder(buf)}
}

// Log writes one event as a JSONL line, adding a "time" field. The
// caller's map is left untouched.
func (rl *RunLogger) Log(event map[string]any) {
	if rl == nil || rl.enc == nil {
		return
	}
	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	_ = rl.enc.Encode(entry)
}

// Close flushes buffered lines and closes the file.
func (rl *RunLogger) Close() {
	if rl == nil || rl.file == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buf.Flush()
	rl.file.Close()
	rl.file = nil
	rl.enc = nil
}
