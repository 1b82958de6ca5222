package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broadcast-assistant/ba-go/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	logger.Debug("hidden")
	logger.Info("visible", "sink", "AA:BB:CC:DD:EE:FF")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "visible" || entry["service"] != "ba-assistant" || entry["version"] != "1.2.3" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["sink"] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("sink attr = %v", entry["sink"])
	}
}

func TestNewWithWriterTextDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, "dev", &buf)

	logger.Debug("details")
	if !strings.Contains(buf.String(), "level=DEBUG") || !strings.Contains(buf.String(), "msg=details") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "loud"}, "dev", &buf)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.log")
	logger, closeFn, err := New(config.LoggingConfig{Level: "info", Format: "text", Output: path}, "dev")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestNewBadFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "assistant.log")
	if _, _, err := New(config.LoggingConfig{Output: path}, "dev"); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
