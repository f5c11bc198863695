package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestSourcesCommand(t *testing.T) {
	path := writeConfig(t, `
sources:
  - id: acme-news
    name: Acme
    sector: Retail
    url: https://acme.example.com/news
    keywords: [copilot, assistant]
  - id: globex
    name: Globex
    url: https://globex.example.com/
    enabled: false
`)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sources", "--config", path, "--log-level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("sources command failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[1], "acme-news") || !strings.Contains(lines[1], "copilot,assistant") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "false") {
		t.Fatalf("disabled source should be marked: %q", lines[2])
	}
}

func TestInvalidConfigFails(t *testing.T) {
	path := writeConfig(t, "classifier:\n  threshold: 3\n")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sources", "--config", path})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "threshold") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
