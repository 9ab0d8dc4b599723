package scan

import (
	"os"
	"path/filepath"
	"testing"
)

const validWorkflow = `{
  "name": "Webhook to Slack",
  "nodes": [
    {"name": "Webhook", "type": "n8n-nodes-base.webhook", "position": [100, 200], "typeVersion": 1},
    {"name": "Slack", "type": "n8n-nodes-base.slack", "position": [300, 200], "typeVersion": 1}
  ],
  "connections": {"Webhook": {}}
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanValidatesWorkflows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.json"), validWorkflow)
	writeFile(t, filepath.Join(dir, "broken.json"), `{"name": "x", "nodes": []}`)
	writeFile(t, filepath.Join(dir, "garbage.json"), `not json at all`)
	writeFile(t, filepath.Join(dir, "notes.txt"), `ignore me`)

	workflows, err := Scan(Options{InputDir: dir, Recursive: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(workflows) != 3 {
		t.Fatalf("expected 3 JSON files, got %d", len(workflows))
	}

	summary := Summarize(workflows)
	if summary.ValidWorkflows != 1 {
		t.Fatalf("expected 1 valid workflow, got %d", summary.ValidWorkflows)
	}
	if summary.InvalidWorkflows != 2 {
		t.Fatalf("expected 2 invalid workflows, got %d", summary.InvalidWorkflows)
	}
	if summary.TotalNodes != 2 {
		t.Fatalf("expected 2 nodes, got %d", summary.TotalNodes)
	}

	valid := Valid(workflows)
	if len(valid) != 1 || valid[0].Name != "Webhook to Slack" {
		t.Fatalf("unexpected valid set: %+v", valid)
	}
}

func TestScanOrderIsStable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.json"), validWorkflow)
	writeFile(t, filepath.Join(dir, "a.json"), validWorkflow)
	writeFile(t, filepath.Join(dir, "sub", "c.json"), validWorkflow)

	workflows, err := Scan(Options{InputDir: dir, Recursive: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(workflows) != 3 {
		t.Fatalf("expected 3 workflows, got %d", len(workflows))
	}
	if filepath.Base(workflows[0].Path) != "a.json" || filepath.Base(workflows[1].Path) != "b.json" {
		t.Fatalf("expected lexical order, got %s then %s", workflows[0].Path, workflows[1].Path)
	}
}

func TestScanNonRecursiveSkipsSubfolders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.json"), validWorkflow)
	writeFile(t, filepath.Join(dir, "sub", "nested.json"), validWorkflow)

	workflows, err := Scan(Options{InputDir: dir, Recursive: false})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(workflows) != 1 {
		t.Fatalf("expected 1 workflow, got %d", len(workflows))
	}
}

func TestScanIgnoresOwnStatusReport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.json"), validWorkflow)
	writeFile(t, filepath.Join(dir, "n8n-snap-job.json"), `{"summary": {"total": 1}}`)

	workflows, err := Scan(Options{InputDir: dir, Recursive: true})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(workflows) != 1 {
		t.Fatalf("expected the report to be excluded, got %d files", len(workflows))
	}
}

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/x/My Workflow (v2).json", "My_Workflow_v2"},
		{"/x/already-safe_name.json", "already-safe_name"},
		{"/x/__weird__.json", "weird"},
	}
	for _, tc := range cases {
		wf := WorkflowFile{Path: tc.path}
		if got := wf.SafeFilename(); got != tc.want {
			t.Fatalf("SafeFilename(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
