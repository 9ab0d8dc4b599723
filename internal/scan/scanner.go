// Package scan discovers and validates n8n workflow JSON files. It is the
// discovery collaborator for the batch engine: it produces the ordered list
// of inputs before a run starts and performs no rendering itself.
package scan

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WorkflowFile is one discovered workflow JSON file with its validation
// outcome. Raw holds the original file bytes so the render backend receives
// the workflow exactly as authored.
type WorkflowFile struct {
	Path            string
	Name            string
	Valid           bool
	Error           string
	NodeCount       int
	ConnectionCount int
	NodeTypes       []string
	Raw             []byte
}

// Filename returns the base name without the .json extension.
func (w WorkflowFile) Filename() string {
	base := filepath.Base(w.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SafeFilename returns a filesystem-safe name for the rendered artifact:
// non-alphanumeric runs collapse to single underscores.
func (w WorkflowFile) SafeFilename() string {
	var b strings.Builder
	lastUnderscore := false
	for _, c := range w.Filename() {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteRune(c)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

type Summary struct {
	TotalFiles       int      `json:"total_files"`
	ValidWorkflows   int      `json:"valid_workflows"`
	InvalidWorkflows int      `json:"invalid_workflows"`
	TotalNodes       int      `json:"total_nodes"`
	NodeTypes        []string `json:"node_types"`
}

type Options struct {
	InputDir  string
	Recursive bool
}

type workflowNode struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Position    []float64       `json:"position"`
	TypeVersion json.RawMessage `json:"typeVersion"`
}

type workflowDoc struct {
	Name        string                     `json:"name"`
	Nodes       []workflowNode             `json:"nodes"`
	Connections map[string]json.RawMessage `json:"connections"`
}

// Scan walks the input folder for *.json files in lexical order and
// validates each one. The returned order is stable across runs so reports
// stay reproducible.
func Scan(opts Options) ([]WorkflowFile, error) {
	root := strings.TrimSpace(opts.InputDir)
	if root == "" {
		return nil, fmt.Errorf("input folder is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input folder %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !opts.Recursive {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(paths)

	workflows := make([]WorkflowFile, 0, len(paths))
	for _, path := range paths {
		if filepath.Base(path) == "n8n-snap-job.json" {
			// The run's own status report is never a workflow.
			continue
		}
		workflows = append(workflows, processFile(path))
	}
	return workflows, nil
}

func processFile(path string) WorkflowFile {
	wf := WorkflowFile{Path: path}
	wf.Name = wf.Filename()

	data, err := os.ReadFile(path)
	if err != nil {
		wf.Error = fmt.Sprintf("read error: %v", err)
		return wf
	}
	wf.Raw = data

	var doc workflowDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		wf.Error = fmt.Sprintf("invalid JSON: %v", err)
		return wf
	}
	if err := validate(doc); err != nil {
		wf.Error = fmt.Sprintf("validation error: %v", err)
		return wf
	}

	if strings.TrimSpace(doc.Name) != "" {
		wf.Name = doc.Name
	}
	wf.Valid = true
	wf.NodeCount = len(doc.Nodes)
	wf.ConnectionCount = len(doc.Connections)
	wf.NodeTypes = uniqueNodeTypes(doc.Nodes)
	return wf
}

func validate(doc workflowDoc) error {
	if len(doc.Nodes) == 0 {
		return fmt.Errorf("nodes: workflow must contain at least one node")
	}
	for i, n := range doc.Nodes {
		if strings.TrimSpace(n.Name) == "" {
			return fmt.Errorf("nodes[%d].name: required", i)
		}
		if strings.TrimSpace(n.Type) == "" {
			return fmt.Errorf("nodes[%d].type: required", i)
		}
		if len(n.Position) != 2 {
			return fmt.Errorf("nodes[%d].position: expected [x, y], got %d values", i, len(n.Position))
		}
	}
	return nil
}

func uniqueNodeTypes(nodes []workflowNode) []string {
	seen := make(map[string]bool, len(nodes))
	types := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !seen[n.Type] {
			seen[n.Type] = true
			types = append(types, n.Type)
		}
	}
	sort.Strings(types)
	return types
}

// Valid filters the scan results down to renderable workflows.
func Valid(workflows []WorkflowFile) []WorkflowFile {
	out := make([]WorkflowFile, 0, len(workflows))
	for _, w := range workflows {
		if w.Valid {
			out = append(out, w)
		}
	}
	return out
}

// Invalid filters the scan results down to rejected files.
func Invalid(workflows []WorkflowFile) []WorkflowFile {
	out := make([]WorkflowFile, 0, len(workflows))
	for _, w := range workflows {
		if !w.Valid {
			out = append(out, w)
		}
	}
	return out
}

func Summarize(workflows []WorkflowFile) Summary {
	s := Summary{TotalFiles: len(workflows)}
	typeSet := make(map[string]bool)
	for _, w := range workflows {
		if !w.Valid {
			s.InvalidWorkflows++
			continue
		}
		s.ValidWorkflows++
		s.TotalNodes += w.NodeCount
		for _, t := range w.NodeTypes {
			typeSet[t] = true
		}
	}
	for t := range typeSet {
		s.NodeTypes = append(s.NodeTypes, t)
	}
	sort.Strings(s.NodeTypes)
	return s
}
