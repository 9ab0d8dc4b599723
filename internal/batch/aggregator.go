package batch

import (
	"sync"
	"time"

	"n8n-snap/internal/model"
)

// etaWindow is how many recent job durations feed the moving-average ETA.
const etaWindow = 10

// Aggregator is the single point of truth for run accounting. Every
// JobResult merge happens inside one critical section, so a concurrent
// snapshot can never observe counters and remaining out of step.
type Aggregator struct {
	mu sync.Mutex

	total     int
	succeeded int
	failed    int
	replaced  int
	remaining int

	startedAt time.Time
	workers   int
	history   []model.JobResult
	durations []time.Duration
}

func NewAggregator(total, workers int, startedAt time.Time) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		total:     total,
		remaining: total,
		workers:   workers,
		startedAt: startedAt,
		history:   make([]model.JobResult, 0, total),
	}
}

// Record merges one JobResult. Results arrive interleaved across workers;
// only the final aggregate is order-sensitive and that is handled at report
// time.
func (a *Aggregator) Record(res model.JobResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch res.Status {
	case model.StatusSuccess:
		a.succeeded++
	case model.StatusReplaced:
		a.succeeded++
		a.replaced++
	default:
		a.failed++
	}
	a.remaining--
	a.history = append(a.history, res)

	a.durations = append(a.durations, res.Duration())
	if len(a.durations) > etaWindow {
		a.durations = a.durations[1:]
	}
}

// Snapshot returns an immutable copy of the current RunStats. ETA and
// throughput are recomputed on every call, never cached.
func (a *Aggregator) Snapshot() model.RunStats {
	return a.snapshotAt(time.Now())
}

func (a *Aggregator) snapshotAt(now time.Time) model.RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := model.RunStats{
		Total:         a.total,
		Succeeded:     a.succeeded,
		Failed:        a.failed,
		Replaced:      a.replaced,
		Remaining:     a.remaining,
		StartedAt:     a.startedAt,
		ActiveWorkers: a.workers,
		Complete:      a.remaining == 0,
	}

	elapsed := now.Sub(a.startedAt)
	if elapsed > 0 {
		stats.ElapsedSeconds = elapsed.Seconds()
	}

	completed := a.succeeded + a.failed
	if completed > 0 && stats.ElapsedSeconds > 0 {
		stats.JobsPerMinute = float64(completed) / (stats.ElapsedSeconds / 60)
	}

	if len(a.durations) > 0 {
		var sum time.Duration
		for _, d := range a.durations {
			sum += d
		}
		avg := sum / time.Duration(len(a.durations))
		stats.AvgDurationMs = avg.Milliseconds()
		if a.remaining > 0 {
			stats.ETASeconds = avg.Seconds() * float64(a.remaining) / float64(a.workers)
		}
	}
	return stats
}

// History returns a copy of the per-job results in arrival order.
func (a *Aggregator) History() []model.JobResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.JobResult, len(a.history))
	copy(out, a.history)
	return out
}
