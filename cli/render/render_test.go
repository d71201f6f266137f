package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/radar/sink"
	"github.com/pithecene-io/radar/types"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
		{"invalid with message", "csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)

	data := map[string]string{"key": "value"}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `"key"`) || !strings.Contains(got, `"value"`) {
		t.Errorf("JSON output missing expected content: %s", got)
	}
}

func TestRenderer_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, false, &buf)

	data := map[string]string{"key": "value"}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "key:") || !strings.Contains(got, "value") {
		t.Errorf("YAML output missing expected content: %s", got)
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	data := sink.Stats{Appended: 150, Evicted: 50, Critical: 1, Retained: 100}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "appended:") || !strings.Contains(got, "150") {
		t.Errorf("Table output missing appended field: %s", got)
	}
	if !strings.Contains(got, "retained:") || !strings.Contains(got, "100") {
		t.Errorf("Table output missing retained field: %s", got)
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	data := []types.TelemetryEvent{
		{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Text: "first", Severity: types.SeverityInfo},
		{Timestamp: time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC), Text: "second", Severity: types.SeverityCritical},
	}

	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "TIMESTAMP") || !strings.Contains(got, "SEVERITY") {
		t.Errorf("Table output missing headers: %s", got)
	}
	if !strings.Contains(got, "first") || !strings.Contains(got, "CRITICAL") {
		t.Errorf("Table output missing data: %s", got)
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	data := []string{}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "(no results)") {
		t.Errorf("Empty slice should show '(no results)', got: %s", got)
	}
}

func TestRenderer_NoColor_DoesNotAffectJSON(t *testing.T) {
	// --no-color should not change JSON output
	var bufColor, bufNoColor bytes.Buffer

	rColor := NewRendererWithWriter(FormatJSON, false, &bufColor)
	rNoColor := NewRendererWithWriter(FormatJSON, true, &bufNoColor)

	data := map[string]string{"key": "value"}

	if err := rColor.Render(data); err != nil {
		t.Fatalf("Render with color failed: %v", err)
	}
	if err := rNoColor.Render(data); err != nil {
		t.Fatalf("Render without color failed: %v", err)
	}

	if bufColor.String() != bufNoColor.String() {
		t.Errorf("--no-color should not affect JSON output")
	}
}

func testSignals() []types.Signal {
	return []types.Signal{
		types.LifecycleSignal(types.StateConnected, true),
		types.EventSignal(types.TelemetryEvent{
			Timestamp: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
			Text:      "[ALERT] unsigned driver load",
			Severity:  types.SeverityCritical,
		}),
		types.LifecycleSignal(types.StateDisconnected, false),
	}
}

func TestRenderSignal_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)

	for _, sig := range testSignals() {
		if err := r.RenderSignal(sig); err != nil {
			t.Fatalf("RenderSignal: %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), buf.String())
	}

	var views []SignalView
	for _, line := range lines {
		var v SignalView
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		views = append(views, v)
	}

	if views[0].Text != types.ConnectedMessage || !views[0].Synthetic {
		t.Errorf("first = %+v, want synthetic %q", views[0], types.ConnectedMessage)
	}
	if views[1].Severity != "CRITICAL" || views[1].Timestamp != "2026-04-01T09:00:00Z" {
		t.Errorf("event = %+v", views[1])
	}
	if views[2].Text != types.DisconnectedMessage || views[2].Severity != "" {
		t.Errorf("last = %+v, want %q without severity", views[2], types.DisconnectedMessage)
	}
}

func TestRenderSignal_Table(t *testing.T) {
	tests := []struct {
		name      string
		noColor   bool
		wantColor bool
	}{
		{"colored", false, true},
		{"no color", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewRendererWithWriter(FormatTable, tt.noColor, &buf)
			for _, sig := range testSignals() {
				if err := r.RenderSignal(sig); err != nil {
					t.Fatalf("RenderSignal: %v", err)
				}
			}

			got := buf.String()
			for _, want := range []string{types.ConnectedMessage, "CRITICAL", "[ALERT] unsigned driver load", types.DisconnectedMessage} {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			if hasColor := strings.Contains(got, "\x1b["); hasColor != tt.wantColor {
				t.Errorf("ANSI present = %v, want %v", hasColor, tt.wantColor)
			}
		})
	}
}

func TestRenderSignal_YAMLDocuments(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, false, &buf)
	for _, sig := range testSignals() {
		if err := r.RenderSignal(sig); err != nil {
			t.Fatalf("RenderSignal: %v", err)
		}
	}

	got := buf.String()
	if n := strings.Count(got, "---\n"); n != 3 {
		t.Errorf("documents = %d, want 3:\n%s", n, got)
	}
	if !strings.Contains(got, "kind: event") {
		t.Errorf("missing event kind:\n%s", got)
	}
}
