package cli

import (
	"flag"
	"fmt"
	"strings"

	"n8n-snap/internal/scan"
)

type scanOutput struct {
	InputDir  string            `json:"input_dir"`
	Summary   scan.Summary      `json:"summary"`
	Workflows []scanOutputEntry `json:"workflows"`
}

type scanOutputEntry struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
	NodeCount int      `json:"node_count"`
	NodeTypes []string `json:"node_types,omitempty"`
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	input := fs.String("input", "", "folder containing workflow JSON files")
	recursive := fs.Bool("recursive", false, "descend into subfolders")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*input) == "" {
		return fmt.Errorf("--input is required")
	}

	workflows, err := scan.Scan(scan.Options{InputDir: *input, Recursive: *recursive})
	if err != nil {
		return err
	}
	summary := scan.Summarize(workflows)

	if *jsonOut {
		out := scanOutput{InputDir: *input, Summary: summary}
		for _, wf := range workflows {
			out.Workflows = append(out.Workflows, scanOutputEntry{
				Path:      wf.Path,
				Name:      wf.Name,
				Valid:     wf.Valid,
				Error:     wf.Error,
				NodeCount: wf.NodeCount,
				NodeTypes: wf.NodeTypes,
			})
		}
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		fmt.Printf("scanned %s\n", *input)
		for _, wf := range workflows {
			if wf.Valid {
				fmt.Printf("  ok      %-40s %d nodes (%s)\n", wf.Name, wf.NodeCount, strings.Join(wf.NodeTypes, ", "))
			} else {
				fmt.Printf("  invalid %-40s %s\n", wf.Path, wf.Error)
			}
		}
		fmt.Printf("total: %d | valid: %d | invalid: %d | nodes: %d\n",
			summary.TotalFiles, summary.ValidWorkflows, summary.InvalidWorkflows, summary.TotalNodes)
	}

	if summary.InvalidWorkflows > 0 {
		return fmt.Errorf("%d workflow(s) failed validation", summary.InvalidWorkflows)
	}
	return nil
}
