package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"n8n-snap/internal/model"
	"n8n-snap/internal/render"
)

// ErrOutputWrite marks a job that rendered fine but whose image could not
// be written. It is recorded as an io_error in the report.
var ErrOutputWrite = errors.New("output write failed")

// jobSource is what the pool pulls from; the orchestrator wraps the
// JobQueue to observe exhaustion.
type jobSource interface {
	Take() (model.Job, bool)
}

// Pool runs a fixed number of concurrent executors over a job source. A
// pool of one degenerates to strictly sequential processing with identical
// semantics.
type Pool struct {
	Workers int
	Client  render.Client
	Slots   *SlotTable
}

// Run pulls jobs until the source is exhausted or the context is cancelled,
// emitting exactly one JobResult per executed job, then closes the results
// channel. A single job's failure never stops the other executors.
func (p *Pool) Run(ctx context.Context, source jobSource, results chan<- model.JobResult) {
	var wg sync.WaitGroup
	for w := 1; w <= p.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.runWorker(ctx, worker, source, results)
		}(w)
	}
	wg.Wait()
	close(results)
}

func (p *Pool) runWorker(ctx context.Context, worker int, source jobSource, results chan<- model.JobResult) {
	for {
		if ctx.Err() != nil {
			p.Slots.SetIdle(worker)
			return
		}
		job, ok := source.Take()
		if !ok {
			p.Slots.SetIdle(worker)
			return
		}
		result, ok := p.execute(ctx, worker, job)
		if !ok {
			// Run cancelled mid-job: the render was abandoned and no
			// result is recorded for it.
			p.Slots.SetIdle(worker)
			return
		}
		p.Slots.SetCompleted(worker, result)
		results <- result
	}
}

type renderOutcome struct {
	png []byte
	err error
}

func (p *Pool) execute(ctx context.Context, worker int, job model.Job) (model.JobResult, bool) {
	startedAt := time.Now()
	p.Slots.SetRendering(worker, job, startedAt)

	result := model.JobResult{
		JobID:      job.ID,
		Index:      job.Index,
		SourcePath: job.SourcePath,
		OutputPath: job.OutputPath,
		StartedAt:  startedAt,
	}

	jobCtx := ctx
	var cancel context.CancelFunc
	if job.Config.TimeoutSeconds > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(job.Config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	// The timeout is enforced here regardless of whether the client honors
	// its context; a stuck render is abandoned, not waited out.
	done := make(chan renderOutcome, 1)
	go func() {
		png, err := p.Client.Render(jobCtx, job.Workflow, *job.Config)
		done <- renderOutcome{png: png, err: err}
	}()

	var outcome renderOutcome
	select {
	case outcome = <-done:
	case <-jobCtx.Done():
		if ctx.Err() != nil {
			return model.JobResult{}, false
		}
		outcome = renderOutcome{err: fmt.Errorf("%w after %ds", render.ErrTimeout, job.Config.TimeoutSeconds)}
	}

	if outcome.err != nil {
		result.FinishedAt = time.Now()
		result.Status = model.StatusFailed
		result.Err = outcome.err
		return result, true
	}

	// FinishedAt is stamped after the write so the duration covers it.
	status, err := writeImage(job.OutputPath, outcome.png)
	result.FinishedAt = time.Now()
	if err != nil {
		result.Status = model.StatusFailed
		result.Err = err
		return result, true
	}
	result.Status = status
	return result, true
}

// writeImage persists the PNG, reporting StatusReplaced when a prior
// artifact existed at the output path.
func writeImage(path string, png []byte) (string, error) {
	status := model.StatusSuccess
	if _, err := os.Stat(path); err == nil {
		status = model.StatusReplaced
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: create output directory for %s: %v", ErrOutputWrite, path, err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrOutputWrite, path, err)
	}
	return status, nil
}
