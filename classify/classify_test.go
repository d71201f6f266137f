package classify

import (
	"testing"
	"time"

	"github.com/pithecene-io/radar/types"
)

func TestSeverity_Table(t *testing.T) {
	tests := []struct {
		text string
		want types.Severity
	}{
		{"[ALERT] root login", types.SeverityCritical},
		{"Suspicious outbound connection", types.SeverityWarning},
		{"heartbeat ok", types.SeverityInfo},
		{"prefix [ALERT] in the middle", types.SeverityCritical},
		{"[ALERT] Suspicious thread injected", types.SeverityCritical},
		{"NonSuspiciousWord", types.SeverityWarning},
		{"[alert] lowercase", types.SeverityInfo},
		{"suspicious lowercase", types.SeverityInfo},
		{"ALERT without brackets", types.SeverityInfo},
		{"", types.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Severity(tt.text); got != tt.want {
				t.Errorf("Severity(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSeverity_Idempotent(t *testing.T) {
	texts := []string{"[ALERT] root login", "Suspicious outbound connection", "heartbeat ok"}
	for _, text := range texts {
		if Severity(text) != Severity(text) {
			t.Errorf("Severity(%q) not stable across calls", text)
		}
	}
}

func TestClassify_UsesCallerTimestamp(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	ev := Classify("[ALERT] root login", at)
	if !ev.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, at)
	}
	if ev.Text != "[ALERT] root login" {
		t.Errorf("Text = %q", ev.Text)
	}
	if ev.Severity != types.SeverityCritical {
		t.Errorf("Severity = %v, want CRITICAL", ev.Severity)
	}
	if ev.Detection != nil {
		t.Errorf("free text should not carry a detection: %+v", ev.Detection)
	}
}

func TestClassify_Detection(t *testing.T) {
	line := `{"type":"detection","score":990,"class":0,"type_str":"RWX_REGION","desc":"Suspicious RWX region in pid 4242"}`

	ev := Classify(line, time.Now())
	if ev.Detection == nil {
		t.Fatal("expected detection to be attached")
	}
	if ev.Detection.Score != 990 {
		t.Errorf("Detection.Score = %d, want 990", ev.Detection.Score)
	}
	// Severity comes from the text markers, not the score.
	if ev.Severity != types.SeverityWarning {
		t.Errorf("Severity = %v, want WARNING", ev.Severity)
	}
}

func TestIsLifecycle(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"System Connected", true},
		{"Disconnected", true},
		{"heartbeat ok", false},
		{"Peer Disconnected from share", false},
	}

	for _, tt := range tests {
		if got := IsLifecycle(tt.text); got != tt.want {
			t.Errorf("IsLifecycle(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
