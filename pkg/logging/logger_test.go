package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf, Component: "store"})

	logger.Debug("cache updated", "type", "projects")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if line["msg"] != "cache updated" || line["component"] != "store" || line["type"] != "projects" {
		t.Fatalf("unexpected log line: %+v", line)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf, Format: "text"})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restcache.log")
	logger := New(Config{NoTerminal: true, File: path})

	logger.Error("request failed", "url", "/projects")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "request failed") {
		t.Fatalf("expected log file to contain message, got %q", data)
	}
}

func TestNoTerminalWithoutFileIsNoop(t *testing.T) {
	if _, ok := New(Config{NoTerminal: true}).(noopLogger); !ok {
		t.Fatalf("expected noop logger")
	}
	if _, ok := OrNoop(nil).(noopLogger); !ok {
		t.Fatalf("expected noop logger for nil")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != LevelDebug || ParseLevel("warning") != LevelWarn || ParseLevel("bogus") != LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}
