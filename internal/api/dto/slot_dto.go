package dto

import "time"

// SlotsResponse is the polling payload.
type SlotsResponse struct {
	SlotsLeft int `json:"slots_left"`
}

// SlotRecordResponse describes the full ledger row.
type SlotRecordResponse struct {
	Region      int       `json:"region"`
	SlotsLeft   int       `json:"slots_left"`
	Capacity    int       `json:"capacity"`
	LastUpdated time.Time `json:"last_updated"`
}
