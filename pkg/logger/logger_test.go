package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveFormat(t *testing.T) {
	if got := resolveFormat("Console", nil); got != "console" {
		t.Errorf("resolveFormat(Console) = %q, want console", got)
	}
	if got := resolveFormat("", nil); got != "json" {
		t.Errorf("resolveFormat(\"\", nil) = %q, want json", got)
	}

	// A regular file is never a terminal.
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if got := resolveFormat("", f); got != "json" {
		t.Errorf("resolveFormat(\"\", file) = %q, want json", got)
	}
}

func TestInitWithFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "llmctx.log")
	defer func() { _ = Close() }()

	if err := Init(LogConfig{Level: "debug", Format: "json", File: logPath}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info().Str("task", "resolve-ac").Msg("assembly finished")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Read log file failed: %v", err)
	}
	if !strings.Contains(string(content), "assembly finished") {
		t.Errorf("log file missing message, got: %s", string(content))
	}
}

func TestInitWithInvalidFile(t *testing.T) {
	defer func() { _ = Close() }()

	err := Init(LogConfig{Level: "info", Format: "json", File: "/nonexistent/directory/test.log"})
	if err == nil {
		t.Error("expected error for invalid file path")
	}
}

func TestSetOutputAndWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")

	l := With(map[string]any{"run_id": "abc"})
	l.Warn().Str("path", "a.txt").Msg("skipped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["run_id"] != "abc" {
		t.Errorf("run_id = %v, want abc", entry["run_id"])
	}
	if entry["path"] != "a.txt" {
		t.Errorf("path = %v, want a.txt", entry["path"])
	}
}

func TestSetOutputLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	defer SetOutput(os.Stderr, "info")

	Debug().Msg("debug message")
	Info().Msg("info message")
	if buf.Len() > 0 {
		t.Errorf("debug/info should be filtered, got %s", buf.String())
	}

	Error().Msg("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("error message should be logged")
	}
}

func TestReplace(t *testing.T) {
	var buf bytes.Buffer
	prev := Replace(zerolog.New(&buf))
	defer Replace(prev)

	Get().Info().Msg("replaced")
	if !strings.Contains(buf.String(), "replaced") {
		t.Errorf("expected replaced logger to receive message, got %q", buf.String())
	}
}

func TestGetWithoutInit(t *testing.T) {
	mu.Lock()
	was := initialized
	initialized = false
	mu.Unlock()
	defer func() {
		mu.Lock()
		initialized = was
		mu.Unlock()
	}()

	if Get() == nil {
		t.Fatal("Get() should return a default logger when not initialized")
	}
}
