package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/radar/types"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_FieldsAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(types.Endpoint("/tmp/test.sock"), Options{Output: &buf}).WithSession("sess-1")

	logger.Info("connected", map[string]any{"attempt": 3})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["message"] != "connected" {
		t.Errorf("message = %v, want connected", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["endpoint"] != "/tmp/test.sock" {
		t.Errorf("endpoint = %v", entry["endpoint"])
	}
	if entry["session_id"] != "sess-1" {
		t.Errorf("session_id = %v", entry["session_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["attempt"] != float64(3) {
		t.Errorf("fields = %v, want attempt=3", entry["fields"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("x", Options{Output: &buf, Level: zapcore.WarnLevel})

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Errorf("entries = %v, want only the warn entry", entries)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("nothing", nil)
	logger.Error("nothing", map[string]any{"k": "v"})
	if logger.WithSession("s") != nil {
		t.Error("WithSession on nil should return nil")
	}
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync on nil = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
