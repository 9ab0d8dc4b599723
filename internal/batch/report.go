package batch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"n8n-snap/internal/model"
	"n8n-snap/internal/render"
	"n8n-snap/internal/runstore"
)

// Reporter turns the final aggregate into the durable status report.
// Finalize is idempotent when retried with the same content but refuses to
// run concurrently with itself.
type Reporter struct {
	mu sync.Mutex
}

type ReportInput struct {
	RunID       string
	InputDir    string
	Mode        string
	Settings    model.RenderConfig
	StartedAt   time.Time
	FinishedAt  time.Time
	Partial     bool
	TotalJobs   int
	Results     []model.JobResult
	PriorJobs   []model.JobReport
	DisplayPath func(path string) string
}

// BuildReport assembles the persisted document. Per-job entries are ordered
// by discovery index so reports stay reproducible regardless of worker
// interleaving; prior-run successes carried through a resume come first.
func BuildReport(in ReportInput) model.StatusReport {
	results := make([]model.JobResult, len(in.Results))
	copy(results, in.Results)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	displayPath := in.DisplayPath
	if displayPath == nil {
		displayPath = func(p string) string { return p }
	}

	jobs := make([]model.JobReport, 0, len(in.PriorJobs)+len(results))
	jobs = append(jobs, in.PriorJobs...)

	summary := model.ReportSummary{Total: in.TotalJobs + len(in.PriorJobs)}
	for _, prior := range in.PriorJobs {
		switch prior.Status {
		case model.StatusSuccess:
			summary.Succeeded++
		case model.StatusReplaced:
			summary.Succeeded++
			summary.Replaced++
		case model.StatusFailed:
			summary.Failed++
		}
	}

	for _, res := range results {
		entry := model.JobReport{
			SourcePath: displayPath(res.SourcePath),
			OutputPath: displayPath(res.OutputPath),
			Status:     res.Status,
			DurationMs: res.Duration().Milliseconds(),
			Timestamp:  res.FinishedAt.UTC().Format(time.RFC3339),
		}
		switch res.Status {
		case model.StatusSuccess:
			summary.Succeeded++
		case model.StatusReplaced:
			summary.Succeeded++
			summary.Replaced++
		default:
			summary.Failed++
			entry.Error = failureMessage(res.Err)
		}
		jobs = append(jobs, entry)
	}

	return model.StatusReport{
		RunID:       in.RunID,
		StartedAt:   in.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:  in.FinishedAt.UTC().Format(time.RFC3339),
		InputFolder: in.InputDir,
		Mode:        in.Mode,
		Partial:     in.Partial,
		Summary:     summary,
		Settings:    in.Settings,
		Jobs:        jobs,
	}
}

// Finalize persists the report. A write failure here is a run-level error:
// the report is the run's primary deliverable.
func (r *Reporter) Finalize(dir string, report model.StatusReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := runstore.SaveReport(dir, report); err != nil {
		return fmt.Errorf("finalize status report: %w", err)
	}
	return nil
}

// failureMessage renders a failed job's error as "<reason>: <detail>".
func failureMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	reason := render.Reason(err)
	if errors.Is(err, ErrOutputWrite) {
		reason = render.ReasonIOError
	}
	return fmt.Sprintf("%s: %v", reason, err)
}
