package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dilla-go/dilla/internal/engine"
)

func testResult() *engine.Result {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &engine.Result{
		State:   engine.StateDone,
		Target:  "postgresql",
		Seed:    42,
		Ordered: true,
		Models: []*engine.ModelResult{
			{Model: "events.Venue", Persisted: 20},
			{Model: "events.Event", Persisted: 18, Discarded: 2, Links: 31},
			{Model: "events.Draft", Skipped: true},
		},
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
	}
}

func TestGenerate(t *testing.T) {
	r := Generate(testResult(), "catalog.yaml")

	if r.Totals.Persisted != 38 || r.Totals.Discarded != 2 || r.Totals.Links != 31 {
		t.Errorf("totals = %+v", r.Totals)
	}
	if r.Duration != "1.5s" {
		t.Errorf("duration = %q, want 1.5s", r.Duration)
	}
	if r.Catalog != "catalog.yaml" {
		t.Errorf("catalog = %q", r.Catalog)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")

	if err := Write(Generate(testResult(), "catalog.yaml"), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if loaded.State != engine.StateDone {
		t.Errorf("state = %s", loaded.State)
	}
	if len(loaded.Models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(loaded.Models))
	}
	if !loaded.Models[2].Skipped {
		t.Error("third model should be skipped")
	}
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Write(Generate(testResult(), "catalog.yaml"), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	var loaded RunReport
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("report is not YAML: %v", err)
	}
	if loaded.Seed != 42 {
		t.Errorf("seed = %d", loaded.Seed)
	}
}

func TestFormatText(t *testing.T) {
	res := testResult()
	res.Ordered = false
	text := FormatText(Generate(res, "catalog.yaml"))

	for _, want := range []string{"events.Venue", "events.Event", "skipped", "Total", "31", "No population order"} {
		if !strings.Contains(text, want) {
			t.Errorf("text should contain %q:\n%s", want, text)
		}
	}
}

func TestFormatText_Error(t *testing.T) {
	res := testResult()
	res.State = engine.StateFailed
	res.Error = "saving events.Event: connection reset"

	text := FormatText(Generate(res, "catalog.yaml"))
	if !strings.Contains(text, "connection reset") {
		t.Errorf("text should show the error:\n%s", text)
	}
}
