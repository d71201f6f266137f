package render

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/radar/types"
)

// ANSI styles for table output.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[1;31m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[32m"
	ansiDim    = "\x1b[2m"
)

// SignalView is the structured form of one streamed signal.
type SignalView struct {
	Kind      string           `json:"kind" yaml:"kind"`
	Text      string           `json:"text" yaml:"text"`
	Severity  string           `json:"severity,omitempty" yaml:"severity,omitempty"`
	Timestamp string           `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Synthetic bool             `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
	Detection *types.Detection `json:"detection,omitempty" yaml:"detection,omitempty"`
}

// NewSignalView converts a signal for output.
func NewSignalView(sig types.Signal) SignalView {
	view := SignalView{
		Kind:      sig.Kind.String(),
		Text:      sig.String(),
		Synthetic: sig.Synthetic,
	}
	if sig.Event != nil {
		view.Severity = sig.Event.Severity.String()
		view.Timestamp = sig.Event.Timestamp.UTC().Format(time.RFC3339Nano)
		view.Detection = sig.Event.Detection
	}
	return view
}

// RenderSignal writes one signal as it arrives:
//   - json: one compact object per line
//   - yaml: one document per signal
//   - table: one aligned line, severity colored unless --no-color
func (r *Renderer) RenderSignal(sig types.Signal) error {
	view := NewSignalView(sig)

	switch r.format {
	case FormatJSON:
		return json.NewEncoder(r.out).Encode(view)
	case FormatYAML:
		if _, err := fmt.Fprintln(r.out, "---"); err != nil {
			return err
		}
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		_, err := fmt.Fprintln(r.out, r.signalLine(sig))
		return err
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) signalLine(sig types.Signal) string {
	if sig.IsLifecycle() {
		style := ansiGreen
		if sig.Kind == types.SignalDisconnected {
			style = ansiDim
		}
		return r.paint(style, fmt.Sprintf("%-20s %-8s %s", "", "-", sig.String()))
	}

	ev := sig.Event
	line := fmt.Sprintf("%-20s %-8s %s", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Severity, ev.Text)
	switch ev.Severity {
	case types.SeverityCritical:
		return r.paint(ansiRed, line)
	case types.SeverityWarning:
		return r.paint(ansiYellow, line)
	default:
		return line
	}
}

func (r *Renderer) paint(style, s string) string {
	if r.noColor {
		return s
	}
	return style + s + ansiReset
}
