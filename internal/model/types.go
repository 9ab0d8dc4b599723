package model

import "time"

// RenderConfig is the render configuration shared by every job in a run.
// It is built once at queue-build time and never mutated afterwards.
type RenderConfig struct {
	Width          int  `json:"width" yaml:"width"`
	Height         int  `json:"height" yaml:"height"`
	DarkMode       bool `json:"dark_mode" yaml:"dark_mode"`
	TimeoutSeconds int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	WaitSeconds    int  `json:"wait_seconds" yaml:"wait_seconds"`
	Retries        int  `json:"retries,omitempty" yaml:"retries"`
}

// Job is one workflow-to-image conversion unit of work. Jobs are created
// once at queue-build time and consumed exactly once by exactly one worker.
type Job struct {
	ID         string
	Index      int
	Name       string
	SourcePath string
	OutputPath string
	Workflow   []byte
	Config     *RenderConfig
}

// JobResult is the outcome of executing one Job. Exactly one JobResult
// exists per Job once the run completes.
type JobResult struct {
	JobID      string
	Index      int
	SourcePath string
	OutputPath string
	Status     string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r JobResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the job produced an image, replaced or not.
func (r JobResult) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusReplaced
}

// RunStats is the cumulative accounting for a run, mutated only by the
// result aggregator. Succeeded includes replaced results.
type RunStats struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Replaced  int       `json:"replaced"`
	Remaining int       `json:"remaining"`
	StartedAt time.Time `json:"started_at"`

	// Derived on snapshot, not carried between snapshots.
	ETASeconds     float64 `json:"eta_seconds"`
	JobsPerMinute  float64 `json:"jobs_per_minute"`
	AvgDurationMs  int64   `json:"avg_duration_ms"`
	ActiveWorkers  int     `json:"active_workers"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Complete       bool    `json:"complete"`
}

// JobReport is the per-job line item of the persisted status report.
type JobReport struct {
	SourcePath string `json:"source_path"`
	OutputPath string `json:"output_path"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

// StatusReport is the durable run artifact, written exactly once at
// finalization.
type StatusReport struct {
	RunID       string        `json:"run_id"`
	StartedAt   string        `json:"started_at"`
	FinishedAt  string        `json:"finished_at"`
	InputFolder string        `json:"input_folder"`
	Mode        string        `json:"mode"`
	Partial     bool          `json:"partial,omitempty"`
	Summary     ReportSummary `json:"summary"`
	Settings    RenderConfig  `json:"settings"`
	Jobs        []JobReport   `json:"jobs"`
}

type ReportSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Replaced  int `json:"replaced"`
}
