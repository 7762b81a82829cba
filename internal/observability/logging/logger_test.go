package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTextLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, "warn")
	logger.Info("document_ingested")
	logger.Warn("query_log_failed", "query_id", "q1")

	out := buf.String()
	if strings.Contains(out, "document_ingested") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "query_log_failed") || !strings.Contains(out, "query_id=q1") {
		t.Fatalf("unexpected output: %q", out)
	}
}
