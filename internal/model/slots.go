package model

import "time"

// Worker slot phases for live multi-worker visibility. Transient, never
// persisted.
const (
	SlotIdle      = "idle"
	SlotRendering = "rendering"
	SlotCompleted = "completed"
)

// WorkerSlotState is the published state of one worker slot. Each slot is
// written only by its owning worker and read by the display layer.
type WorkerSlotState struct {
	Worker    int
	Phase     string
	JobID     string
	JobName   string
	Status    string
	StartedAt time.Time
}
