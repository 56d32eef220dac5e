package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-slot-service/internal/domain"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// SlotRepository is the per-region slot ledger. Adjust is the only mutator;
// it refreshes last_updated on every successful call, including delta zero.
type SlotRepository interface {
	Get(ctx context.Context, region domain.Region) (*domain.SlotRecord, error)
	// Adjust applies delta and returns the new slots_left. It fails with
	// SLOT_EXHAUSTED when the result would be negative and SLOT_OVERFLOW
	// when it would exceed capacity.
	Adjust(ctx context.Context, region domain.Region, delta int) (int, error)
	// Ensure inserts the region's ledger row at the given capacity if absent.
	Ensure(ctx context.Context, region domain.Region, capacity int) error
}

type slotRepository struct {
	q Querier
}

func (r *slotRepository) Get(ctx context.Context, region domain.Region) (*domain.SlotRecord, error) {
	const query = `
        SELECT region, slots_left, capacity, last_updated
        FROM slots WHERE region=$1`

	var (
		record    domain.SlotRecord
		regionKey int
	)
	if err := r.q.QueryRow(ctx, query, int(region)).Scan(
		&regionKey,
		&record.SlotsLeft,
		&record.Capacity,
		&record.LastUpdated,
	); err != nil {
		return nil, err
	}
	record.Region = domain.Region(regionKey)
	return &record, nil
}

func (r *slotRepository) Adjust(ctx context.Context, region domain.Region, delta int) (int, error) {
	// The conditional update takes the row lock and enforces both bounds in
	// one statement, which serializes adjustments within a region.
	const query = `
        UPDATE slots SET slots_left = slots_left + $2, last_updated = NOW()
        WHERE region = $1 AND slots_left + $2 >= 0 AND slots_left + $2 <= capacity
        RETURNING slots_left`

	var slotsLeft int
	err := r.q.QueryRow(ctx, query, int(region), delta).Scan(&slotsLeft)
	if err == nil {
		return slotsLeft, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// No row matched: either the region is unknown or a bound was violated.
	if _, getErr := r.Get(ctx, region); getErr != nil {
		return 0, getErr
	}
	if delta < 0 {
		return 0, apperrors.NewSlotExhausted(int(region))
	}
	return 0, apperrors.NewSlotOverflow(int(region))
}

func (r *slotRepository) Ensure(ctx context.Context, region domain.Region, capacity int) error {
	const query = `
        INSERT INTO slots (region, slots_left, capacity, last_updated)
        VALUES ($1, $2, $2, NOW())
        ON CONFLICT (region) DO NOTHING`

	_, err := r.q.Exec(ctx, query, int(region), capacity)
	return err
}
