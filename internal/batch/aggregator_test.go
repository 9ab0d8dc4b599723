package batch

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"n8n-snap/internal/model"
)

func resultWithDuration(i int, status string, d time.Duration) model.JobResult {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return model.JobResult{
		JobID:      fmt.Sprintf("job-%d.json", i),
		Index:      i,
		SourcePath: fmt.Sprintf("/data/workflows/job-%d.json", i),
		OutputPath: fmt.Sprintf("/data/workflows/job-%d.png", i),
		Status:     status,
		StartedAt:  started,
		FinishedAt: started.Add(d),
	}
}

func TestAggregatorCounts(t *testing.T) {
	agg := NewAggregator(4, 2, time.Now())
	agg.Record(resultWithDuration(0, model.StatusSuccess, time.Second))
	agg.Record(resultWithDuration(1, model.StatusReplaced, time.Second))
	agg.Record(resultWithDuration(2, model.StatusFailed, time.Second))

	stats := agg.Snapshot()
	if stats.Succeeded != 2 {
		t.Fatalf("expected succeeded 2 (replaced counts), got %d", stats.Succeeded)
	}
	if stats.Replaced != 1 || stats.Failed != 1 || stats.Remaining != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Complete {
		t.Fatalf("run should not be complete with 1 remaining")
	}

	agg.Record(resultWithDuration(3, model.StatusSuccess, time.Second))
	if stats := agg.Snapshot(); !stats.Complete || stats.Remaining != 0 {
		t.Fatalf("expected complete run, got %+v", stats)
	}
}

// Snapshots taken while results stream in must never show counters and
// remaining out of step.
func TestAggregatorSnapshotNeverTorn(t *testing.T) {
	const total = 200
	agg := NewAggregator(total, 4, time.Now())

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			status := model.StatusSuccess
			if i%3 == 0 {
				status = model.StatusFailed
			}
			agg.Record(resultWithDuration(i, status, 10*time.Millisecond))
		}
		close(done)
	}()

	for {
		stats := agg.Snapshot()
		if stats.Succeeded+stats.Failed != stats.Total-stats.Remaining {
			t.Fatalf("torn snapshot: %+v", stats)
		}
		select {
		case <-done:
			wg.Wait()
			stats := agg.Snapshot()
			if stats.Remaining != 0 || stats.Succeeded+stats.Failed != total {
				t.Fatalf("final snapshot wrong: %+v", stats)
			}
			return
		default:
		}
	}
}

func TestAggregatorETAMovingWindow(t *testing.T) {
	startedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(20, 2, startedAt)

	// Two old slow results that must age out of the 10-wide window.
	agg.Record(resultWithDuration(0, model.StatusSuccess, 60*time.Second))
	agg.Record(resultWithDuration(1, model.StatusSuccess, 60*time.Second))
	for i := 2; i < 12; i++ {
		agg.Record(resultWithDuration(i, model.StatusSuccess, 4*time.Second))
	}

	stats := agg.snapshotAt(startedAt.Add(time.Minute))
	if stats.AvgDurationMs != 4000 {
		t.Fatalf("expected window average 4000ms, got %d", stats.AvgDurationMs)
	}
	// 8 remaining at 4s average across 2 workers.
	if stats.ETASeconds != 16 {
		t.Fatalf("expected ETA 16s, got %v", stats.ETASeconds)
	}
}

func TestAggregatorThroughputRecomputedPerSnapshot(t *testing.T) {
	startedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(10, 2, startedAt)
	for i := 0; i < 6; i++ {
		agg.Record(resultWithDuration(i, model.StatusSuccess, time.Second))
	}

	early := agg.snapshotAt(startedAt.Add(time.Minute))
	late := agg.snapshotAt(startedAt.Add(2 * time.Minute))
	if early.JobsPerMinute != 6 {
		t.Fatalf("expected 6 jobs/min after one minute, got %v", early.JobsPerMinute)
	}
	if late.JobsPerMinute != 3 {
		t.Fatalf("expected 3 jobs/min after two minutes, got %v", late.JobsPerMinute)
	}
}

func TestAggregatorNoETAWithoutCompletedJobs(t *testing.T) {
	agg := NewAggregator(5, 2, time.Now())
	stats := agg.Snapshot()
	if stats.ETASeconds != 0 || stats.JobsPerMinute != 0 || stats.AvgDurationMs != 0 {
		t.Fatalf("expected zero derived stats before first result, got %+v", stats)
	}
}

func TestAggregatorHistoryIsACopy(t *testing.T) {
	agg := NewAggregator(2, 1, time.Now())
	agg.Record(resultWithDuration(0, model.StatusSuccess, time.Second))

	history := agg.History()
	history[0].Status = model.StatusFailed

	if got := agg.History()[0].Status; got != model.StatusSuccess {
		t.Fatalf("history mutation leaked into aggregator: %s", got)
	}
}
