package runstore

import (
	"path/filepath"
	"testing"

	"n8n-snap/internal/model"
)

func TestWriteJSONThenReadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.json")

	in := map[string]int{"total": 3}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("write JSON: %v", err)
	}

	var out map[string]int
	if err := ReadJSON(path, &out); err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	if out["total"] != 3 {
		t.Fatalf("expected total=3, got %d", out["total"])
	}
}

func TestLoadReport_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	_, found, err := LoadReport(dir)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if found {
		t.Fatalf("expected no report in empty dir")
	}
}

func TestSaveReportThenLoadReport(t *testing.T) {
	dir := t.TempDir()

	report := model.StatusReport{
		RunID:     "run1",
		StartedAt: "2026-01-01T00:00:00Z",
		Summary:   model.ReportSummary{Total: 2, Succeeded: 1, Failed: 1},
		Jobs: []model.JobReport{
			{SourcePath: "a.json", OutputPath: "a.png", Status: model.StatusSuccess, DurationMs: 1200},
			{SourcePath: "b.json", OutputPath: "b.png", Status: model.StatusFailed, Error: "render error: boom", DurationMs: 800},
		},
	}
	if err := SaveReport(dir, report); err != nil {
		t.Fatalf("save report: %v", err)
	}

	out, found, err := LoadReport(dir)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if !found {
		t.Fatalf("expected report to exist")
	}
	if out.Summary.Total != 2 || len(out.Jobs) != 2 {
		t.Fatalf("unexpected report contents: %+v", out)
	}
	if out.Jobs[1].Error == "" {
		t.Fatalf("expected failed job to carry its error reason")
	}
}
