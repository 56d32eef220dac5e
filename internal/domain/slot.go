package domain

import "time"

// SlotRecord is the per-region ledger row.
//
// Invariant: 0 <= SlotsLeft <= Capacity. Submitting consumes a slot and the
// slot stays consumed while the task is active or completed; rejection and
// deletion of an active task release it.
type SlotRecord struct {
	Region      Region
	SlotsLeft   int
	Capacity    int
	LastUpdated time.Time
}
