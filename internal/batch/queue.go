package batch

import (
	"path/filepath"
	"strings"
	"sync"

	"n8n-snap/internal/model"
	"n8n-snap/internal/scan"
)

// JobQueue is the ordered sequence of pending jobs, built once at run start
// and immutable afterwards. Take is safe for concurrent use and never
// blocks: once the queue is exhausted every take reports done immediately.
type JobQueue struct {
	mu   sync.Mutex
	jobs []model.Job
	next int
}

func NewJobQueue(jobs []model.Job) *JobQueue {
	return &JobQueue{jobs: jobs}
}

// Take hands out the next job exactly once, in discovery order.
func (q *JobQueue) Take() (model.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.jobs) {
		return model.Job{}, false
	}
	job := q.jobs[q.next]
	q.next++
	return job, true
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *JobQueue) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next >= len(q.jobs)
}

// BuildJobsOptions controls how discovered workflows become jobs.
type BuildJobsOptions struct {
	InputDir  string
	OutputDir string
	// InPlace writes each PNG next to its source file instead of into
	// OutputDir.
	InPlace bool
	Config  *model.RenderConfig
}

// BuildJobs turns valid scan results into the run's job list, preserving
// discovery order. Job IDs derive from the source path relative to the
// input folder so they stay stable across runs.
func BuildJobs(workflows []scan.WorkflowFile, opts BuildJobsOptions) []model.Job {
	jobs := make([]model.Job, 0, len(workflows))
	for i, wf := range workflows {
		if !wf.Valid {
			continue
		}
		outputName := wf.SafeFilename() + ".png"
		var outputPath string
		if opts.InPlace {
			outputPath = filepath.Join(filepath.Dir(wf.Path), outputName)
		} else {
			outputPath = filepath.Join(opts.OutputDir, outputName)
		}
		jobs = append(jobs, model.Job{
			ID:         JobID(opts.InputDir, wf.Path),
			Index:      i,
			Name:       wf.Name,
			SourcePath: wf.Path,
			OutputPath: outputPath,
			Workflow:   wf.Raw,
			Config:     opts.Config,
		})
	}
	// Reindex so indexes are dense over the renderable set.
	for i := range jobs {
		jobs[i].Index = i
	}
	return jobs
}

// JobID is the stable identifier for a job: the source path relative to the
// input folder, with forward slashes on every platform.
func JobID(inputDir, sourcePath string) string {
	rel, err := filepath.Rel(inputDir, sourcePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(sourcePath)
	}
	return filepath.ToSlash(rel)
}
