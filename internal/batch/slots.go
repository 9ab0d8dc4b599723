package batch

import (
	"sync"
	"time"

	"n8n-snap/internal/model"
)

// SlotTable publishes per-worker slot states for the display layer. Each
// slot is written only by its owning worker; readers always get a copy, so
// a poll can never observe a state mid-mutation.
type SlotTable struct {
	mu    sync.RWMutex
	slots []model.WorkerSlotState
}

func NewSlotTable(workers int) *SlotTable {
	slots := make([]model.WorkerSlotState, workers)
	for i := range slots {
		slots[i] = model.WorkerSlotState{Worker: i + 1, Phase: model.SlotIdle}
	}
	return &SlotTable{slots: slots}
}

func (t *SlotTable) SetRendering(worker int, job model.Job, startedAt time.Time) {
	t.set(worker, model.WorkerSlotState{
		Worker:    worker,
		Phase:     model.SlotRendering,
		JobID:     job.ID,
		JobName:   job.Name,
		StartedAt: startedAt,
	})
}

func (t *SlotTable) SetCompleted(worker int, result model.JobResult) {
	t.set(worker, model.WorkerSlotState{
		Worker:  worker,
		Phase:   model.SlotCompleted,
		JobID:   result.JobID,
		Status:  result.Status,
		JobName: result.SourcePath,
	})
}

func (t *SlotTable) SetIdle(worker int) {
	t.set(worker, model.WorkerSlotState{Worker: worker, Phase: model.SlotIdle})
}

func (t *SlotTable) set(worker int, s model.WorkerSlotState) {
	t.mu.Lock()
	if worker >= 1 && worker <= len(t.slots) {
		t.slots[worker-1] = s
	}
	t.mu.Unlock()
}

// States returns an ordered copy of all slots.
func (t *SlotTable) States() []model.WorkerSlotState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.WorkerSlotState, len(t.slots))
	copy(out, t.slots)
	return out
}
