package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("visible", "source_id", "acme-news")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "visible" || entry["source_id"] != "acme-news" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	if levelFromString("WARNING").String() != "WARN" {
		t.Fatalf("warning should map to WARN")
	}
	if levelFromString("nonsense").String() != "DEBUG" {
		t.Fatalf("unknown level should default to DEBUG")
	}
}
