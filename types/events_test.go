package types //nolint:revive // types is a valid package name

import (
	"encoding/json"
	"testing"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		sev  Severity
		want string
	}{
		{SeverityInfo, "INFO"},
		{SeverityWarning, "WARNING"},
		{SeverityCritical, "CRITICAL"},
		{Severity(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.sev.String(); got != tt.want {
				t.Errorf("Severity(%d).String() = %q, want %q", tt.sev, got, tt.want)
			}
		})
	}
}

func TestSeverity_AtLeast(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityWarning) {
		t.Error("CRITICAL should be at least WARNING")
	}
	if SeverityInfo.AtLeast(SeverityWarning) {
		t.Error("INFO should not be at least WARNING")
	}
	if !SeverityWarning.AtLeast(SeverityWarning) {
		t.Error("WARNING should be at least WARNING")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input  string
		want   Severity
		wantOK bool
	}{
		{"info", SeverityInfo, true},
		{"WARNING", SeverityWarning, true},
		{"warn", SeverityWarning, true},
		{"Critical", SeverityCritical, true},
		{"fatal", SeverityInfo, false},
		{"", SeverityInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseSeverity(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseSeverity(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTelemetryEvent_JSONUsesNames(t *testing.T) {
	ev := TelemetryEvent{Text: "[ALERT] root login", Severity: SeverityCritical}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["severity"] != "CRITICAL" {
		t.Errorf("severity = %v, want CRITICAL", decoded["severity"])
	}
	if _, ok := decoded["detection"]; ok {
		t.Error("detection should be omitted when nil")
	}
}

func TestThreatLevel_String(t *testing.T) {
	if ThreatLow.String() != "LOW" {
		t.Errorf("ThreatLow = %q, want LOW", ThreatLow.String())
	}
	if ThreatHigh.String() != "HIGH" {
		t.Errorf("ThreatHigh = %q, want HIGH", ThreatHigh.String())
	}
}
