package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info message missing")
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)

	logger.Log(t.Context(), LevelTrace, "trace message")
	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("trace output missing TRACE label: %s", buf.String())
	}
}

func TestNewRunLogger_InfoDisabled(t *testing.T) {
	rl := NewRunLogger(t.TempDir(), "info")
	if rl != nil {
		t.Fatal("NewRunLogger at info level should be nil")
	}
	// Nil receiver is safe.
	rl.Log(map[string]any{"seed": 1})
	rl.Close()
}

func TestRunLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	rl := NewRunLogger(dir, "debug")
	if rl == nil {
		t.Fatal("NewRunLogger at debug level = nil")
	}

	rl.Log(map[string]any{"seed": 1, "reason": "timeout"})
	rl.Log(map[string]any{"seed": 2, "reason": "failure"})
	rl.Close()

	f, err := os.Open(filepath.Join(dir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("opening runs.jsonl: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if _, ok := entry["time"]; !ok {
			t.Errorf("line %d missing time field: %v", lines, entry)
		}
		if _, ok := entry["seed"]; !ok {
			t.Errorf("line %d missing seed: %v", lines, entry)
		}
	}
	if lines != 2 {
		t.Errorf("got %d lines, want 2", lines)
	}
}

func TestRunLogger_DoesNotMutateCallerMap(t *testing.T) {
	dir := t.TempDir()
	rl := NewRunLogger(dir, "debug")
	if rl == nil {
		t.Fatal("NewRunLogger = nil")
	}
	defer rl.Close()

	event := map[string]any{"seed": 1}
	rl.Log(event)
	if _, ok := event["time"]; ok {
		t.Error("Log mutated the caller's map")
	}
}
