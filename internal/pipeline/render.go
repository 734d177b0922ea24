package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jurimetrics/sentenza/internal/model"
)

// Renderer writes analysis artifacts
type Renderer struct {
	pretty bool
}

// NewRenderer creates a renderer. Pretty output indents the JSON.
func NewRenderer(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// RenderJSON writes the full analysis artifact to path, creating parent
// directories as needed.
func (r *Renderer) RenderJSON(a *model.Analysis, path string) error {
	data, err := r.marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// WriteJSON streams the analysis artifact to w
func (r *Renderer) WriteJSON(w io.Writer, a *model.Analysis) error {
	data, err := r.marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func (r *Renderer) marshal(a *model.Analysis) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if r.pretty {
		data, err = json.MarshalIndent(a, "", "  ")
	} else {
		data, err = json.Marshal(a)
	}
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RenderSummary writes a short human-readable digest of one analysis
func (r *Renderer) RenderSummary(w io.Writer, a *model.Analysis) {
	caseLine := a.Metadata.CaseID
	if caseLine == "" {
		caseLine = "(unknown case)"
	}
	if a.Metadata.CourtName != "" {
		caseLine += " (" + a.Metadata.CourtName + ")"
	}
	fmt.Fprintf(w, "Case:     %s\n", caseLine)
	fmt.Fprintf(w, "Posture:  %s\n", postureLabel(a.Classification))

	validated := 0
	for _, rec := range a.Records {
		if rec.Status == model.StatusValidated {
			validated++
		}
	}
	fmt.Fprintf(w, "Records:  %d (%d validated, %d pending review)\n",
		len(a.Records), validated, a.Coverage.PendingReview)
	fmt.Fprintf(w, "Coverage: %d cited fields, %d uncited; quantum %d parsed, %d pending\n",
		a.Coverage.CitedFields, a.Coverage.UncitedFields,
		a.Coverage.QuantumParsed, a.Coverage.QuantumPending)
	if a.Extractor != "" {
		fmt.Fprintf(w, "Backend:  %s\n", a.Extractor)
	}
	for _, warning := range a.Warnings {
		fmt.Fprintf(w, "Warning:  %s\n", warning)
	}
}

func postureLabel(cls model.Classification) string {
	if !cls.Sentencing {
		return "not a sentencing decision"
	}
	switch {
	case cls.Appeal == nil:
		return "sentencing, appeal status unresolved"
	case *cls.Appeal:
		return "sentencing appeal"
	default:
		return "sentencing, first instance"
	}
}

// ArtifactName returns the artifact file name for one analysis
func ArtifactName(a *model.Analysis) string {
	if a.Metadata.CaseID != "" {
		return a.Metadata.CaseID + ".json"
	}
	return "analysis.json"
}
