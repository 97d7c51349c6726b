package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/dilla-go/dilla/internal/engine"
)

// RunReport records what one population run did.
type RunReport struct {
	Version     string                `json:"version" yaml:"version"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Target      string                `json:"target" yaml:"target"`
	Catalog     string                `json:"catalog" yaml:"catalog"`
	State       engine.State          `json:"state" yaml:"state"`
	Seed        uint64                `json:"seed" yaml:"seed"`
	Ordered     bool                  `json:"ordered" yaml:"ordered"`
	Duration    string                `json:"duration" yaml:"duration"`
	Totals      Totals                `json:"totals" yaml:"totals"`
	Models      []*engine.ModelResult `json:"models" yaml:"models"`
	Error       string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// Totals sums the per-model counters.
type Totals struct {
	Persisted int `json:"persisted" yaml:"persisted"`
	Discarded int `json:"discarded" yaml:"discarded"`
	Links     int `json:"links" yaml:"links"`
}

// Generate builds a report from an engine result. catalog is a short
// description of the catalog, such as its path.
func Generate(res *engine.Result, catalog string) *RunReport {
	persisted, discarded, links := res.Totals()
	return &RunReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Target:      res.Target,
		Catalog:     catalog,
		State:       res.State,
		Seed:        res.Seed,
		Ordered:     res.Ordered,
		Duration:    res.Finished.Sub(res.Started).Round(time.Millisecond).String(),
		Totals:      Totals{Persisted: persisted, Discarded: discarded, Links: links},
		Models:      res.Models,
		Error:       res.Error,
	}
}

// Write saves the report as YAML when path ends in .yaml or .yml and as
// JSON otherwise.
func Write(report *RunReport, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return WriteYAML(report, path)
	default:
		return WriteJSON(report, path)
	}
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return writeFile(path, data)
}

// WriteYAML writes the report as YAML.
func WriteYAML(report *RunReport, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &RunReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FormatText renders the report as a table for the terminal.
func FormatText(report *RunReport) string {
	var b strings.Builder

	state := string(report.State)
	switch report.State {
	case engine.StateDone:
		state = successStyle.Render(state)
	case engine.StateFailed:
		state = errStyle.Render(state)
	}

	b.WriteString(headerStyle.Render("dilla run report") + "\n")
	b.WriteString(fmt.Sprintf("  Target:   %s\n", report.Target))
	b.WriteString(fmt.Sprintf("  Catalog:  %s\n", report.Catalog))
	b.WriteString(fmt.Sprintf("  State:    %s\n", state))
	b.WriteString(fmt.Sprintf("  Seed:     %d\n", report.Seed))
	b.WriteString(fmt.Sprintf("  Duration: %s\n\n", report.Duration))

	width := len("Model")
	for _, m := range report.Models {
		width = max(width, len(m.Model))
	}
	row := func(style lipgloss.Style, cells ...any) {
		b.WriteString(style.Render(fmt.Sprintf("  %-*s  %9v  %9v  %6v", append([]any{width}, cells...)...)) + "\n")
	}
	plain := lipgloss.NewStyle()

	row(headerStyle, "Model", "Persisted", "Discarded", "Links")
	for _, m := range report.Models {
		if m.Skipped {
			row(dimStyle, m.Model, "skipped", "-", "-")
			continue
		}
		row(plain, m.Model, m.Persisted, m.Discarded, m.Links)
	}
	row(plain, "Total", report.Totals.Persisted, report.Totals.Discarded, report.Totals.Links)

	if !report.Ordered {
		b.WriteString("\n" + dimStyle.Render("  No population order was declared; some foreign keys may be empty.") + "\n")
	}
	if report.Error != "" {
		b.WriteString("\n" + errStyle.Render("  Error: "+report.Error) + "\n")
	}
	return b.String()
}
