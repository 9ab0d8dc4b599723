package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"n8n-snap/internal/model"
	"n8n-snap/internal/render"
)

// Orchestrator lifecycle states. No transition skips a state and Finalized
// is terminal: orchestrators are single-use.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateDraining  = "draining"
	StateFinalized = "finalized"
)

// ErrAlreadyFinalized is returned when Run is called on an orchestrator
// that has already completed a run.
var ErrAlreadyFinalized = errors.New("orchestrator already finalized")

// RunOptions wires one batch run.
type RunOptions struct {
	RunID    string
	Jobs     []model.Job
	Workers  int
	Client   render.Client
	Settings model.RenderConfig

	InputDir  string
	Mode      string
	ReportDir string

	// PriorJobs are successes carried over from a previous run's report in
	// resume mode; they are merged into the final report unchanged.
	PriorJobs []model.JobReport

	// DisplayPath rewrites absolute paths for the report (e.g. relative to
	// the input folder). Nil keeps paths as-is.
	DisplayPath func(string) string

	// OnResult, when set, is invoked after each result is aggregated.
	// Called from the aggregation goroutine only.
	OnResult func(model.JobResult)
}

// Orchestrator owns the run lifecycle: it builds the queue, spins the
// worker pool, drains results into the aggregator, and finalizes the
// status report exactly once.
type Orchestrator struct {
	opts  RunOptions
	queue *JobQueue
	agg   *Aggregator
	slots *SlotTable

	reporter Reporter

	mu    sync.Mutex
	state string
}

func New(opts RunOptions) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if len(opts.Jobs) > 0 && workers > len(opts.Jobs) {
		workers = len(opts.Jobs)
	}
	opts.Workers = workers

	return &Orchestrator{
		opts:  opts,
		queue: NewJobQueue(opts.Jobs),
		agg:   NewAggregator(len(opts.Jobs), workers, time.Now()),
		slots: NewSlotTable(workers),
		state: StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns an immutable copy of the run accounting. Never blocks on
// the workers.
func (o *Orchestrator) Snapshot() model.RunStats {
	return o.agg.Snapshot()
}

// WorkerStates returns an ordered copy of the per-worker slot states.
func (o *Orchestrator) WorkerStates() []model.WorkerSlotState {
	return o.slots.States()
}

// Run executes the batch to completion (or cancellation) and returns the
// final RunStats. Per-job failures never abort the run; only a finalize
// write error or calling Run twice is an error here. On cancellation the
// results aggregated so far are preserved and a partial report is still
// written.
func (o *Orchestrator) Run(ctx context.Context) (model.RunStats, error) {
	if err := o.transition(StateIdle, StateRunning); err != nil {
		return model.RunStats{}, err
	}

	if len(o.opts.Jobs) > 0 {
		pool := &Pool{
			Workers: o.opts.Workers,
			Client:  o.opts.Client,
			Slots:   o.slots,
		}
		results := make(chan model.JobResult)
		go pool.Run(ctx, o.drainingSource(), results)

		for res := range results {
			o.agg.Record(res)
			if o.opts.OnResult != nil {
				o.opts.OnResult(res)
			}
		}
	}
	o.noteDraining()

	stats := o.agg.Snapshot()
	partial := !stats.Complete

	report := BuildReport(ReportInput{
		RunID:       o.opts.RunID,
		InputDir:    o.opts.InputDir,
		Mode:        o.opts.Mode,
		Settings:    o.opts.Settings,
		StartedAt:   stats.StartedAt,
		FinishedAt:  time.Now(),
		Partial:     partial,
		TotalJobs:   stats.Total,
		Results:     o.agg.History(),
		PriorJobs:   o.opts.PriorJobs,
		DisplayPath: o.opts.DisplayPath,
	})
	err := o.reporter.Finalize(o.opts.ReportDir, report)

	o.mu.Lock()
	o.state = StateFinalized
	o.mu.Unlock()

	if err != nil {
		return stats, err
	}
	return stats, nil
}

// drainingSource wraps the queue so the orchestrator observes the moment
// all jobs have been taken while some are still executing.
func (o *Orchestrator) drainingSource() jobSource {
	return takeFunc(func() (model.Job, bool) {
		job, ok := o.queue.Take()
		if !ok {
			o.noteDraining()
		}
		return job, ok
	})
}

func (o *Orchestrator) noteDraining() {
	o.mu.Lock()
	if o.state == StateRunning {
		o.state = StateDraining
	}
	o.mu.Unlock()
}

func (o *Orchestrator) transition(from, to string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateFinalized {
		return ErrAlreadyFinalized
	}
	if o.state != from {
		return fmt.Errorf("orchestrator is %s, cannot start", o.state)
	}
	o.state = to
	return nil
}

type takeFunc func() (model.Job, bool)

func (f takeFunc) Take() (model.Job, bool) { return f() }

// ensure the real client satisfies the pool's dependency
var _ render.Client = (*render.BrowserClient)(nil)
