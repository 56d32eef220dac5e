package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-slot-service/internal/domain"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

func TestMemStore_WithinTxRollsBackOnError(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	if err := store.Slots().Ensure(ctx, domain.Region1, 25); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	sentinel := errors.New("boom")
	err := store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.Slots().Adjust(ctx, domain.Region1, -1); err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, &domain.Task{Name: "t", RequesterID: "r", Status: domain.TaskStatusActive}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	record, err := store.Slots().Get(ctx, domain.Region1)
	if err != nil {
		t.Fatalf("get slots: %v", err)
	}
	if record.SlotsLeft != 25 {
		t.Fatalf("slots_left = %d after rollback, want 25", record.SlotsLeft)
	}
	tasks, err := store.Tasks().List(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("task count = %d after rollback, want 0", len(tasks))
	}
}

func TestMemSlotRepo_AdjustBounds(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	if err := store.Slots().Ensure(ctx, domain.Region2, 2); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if _, err := store.Slots().Adjust(ctx, domain.Region2, +1); !apperrors.IsCode(err, "SLOT_OVERFLOW") {
		t.Fatalf("overflow: err = %v, want SLOT_OVERFLOW", err)
	}
	if _, err := store.Slots().Adjust(ctx, domain.Region2, -3); !apperrors.IsCode(err, "SLOT_EXHAUSTED") {
		t.Fatalf("exhaustion: err = %v, want SLOT_EXHAUSTED", err)
	}
	if _, err := store.Slots().Adjust(ctx, domain.Region1, -1); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("unknown region: err = %v, want pgx.ErrNoRows", err)
	}

	left, err := store.Slots().Adjust(ctx, domain.Region2, -2)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if left != 0 {
		t.Fatalf("slots_left = %d, want 0", left)
	}
}

func TestMemTaskRepo_ListOrderAndFilters(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	requesterA := "req-a"
	requesterB := "req-b"

	seed := []domain.Task{
		{ID: "t3", Name: "third", RequesterID: requesterA, Status: domain.TaskStatusActive, TimeSubmitted: base.Add(2 * time.Hour)},
		{ID: "t1", Name: "first", RequesterID: requesterA, Status: domain.TaskStatusRejected, TimeSubmitted: base},
		{ID: "t2", Name: "second", RequesterID: requesterB, Status: domain.TaskStatusActive, TimeSubmitted: base.Add(time.Hour)},
	}
	for i := range seed {
		task := seed[i]
		if err := store.Tasks().Create(ctx, &task); err != nil {
			t.Fatalf("create %s: %v", task.ID, err)
		}
	}

	all, err := store.Tasks().List(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "t1" || all[1].ID != "t2" || all[2].ID != "t3" {
		t.Fatalf("order wrong: %v", taskIDs(all))
	}

	mine, err := store.Tasks().List(ctx, TaskFilter{RequesterID: &requesterA})
	if err != nil {
		t.Fatalf("list by requester: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "t1" || mine[1].ID != "t3" {
		t.Fatalf("requester filter wrong: %v", taskIDs(mine))
	}

	rejected, err := store.Tasks().List(ctx, TaskFilter{Statuses: []domain.TaskStatus{domain.TaskStatusRejected}})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(rejected) != 1 || rejected[0].ID != "t1" {
		t.Fatalf("status filter wrong: %v", taskIDs(rejected))
	}

	page, err := store.Tasks().List(ctx, TaskFilter{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "t2" {
		t.Fatalf("pagination wrong: %v", taskIDs(page))
	}
}

func TestMemTaskRepo_UpdateStatusTimestamps(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	task := &domain.Task{Name: "t", RequesterID: "r", Status: domain.TaskStatusActive}
	if err := store.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	certifierID := "cert-1"
	if err := store.Tasks().UpdateStatus(ctx, task.ID, domain.TaskStatusRejected, &certifierID, now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, err := store.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TimeRejected == nil || got.TimeCompleted != nil {
		t.Fatalf("rejected timestamps wrong: %+v", got)
	}
	if got.CertifierID == nil || *got.CertifierID != certifierID {
		t.Fatalf("certifier_id = %v, want %s", got.CertifierID, certifierID)
	}

	// Back to active clears both timestamps.
	if err := store.Tasks().UpdateStatus(ctx, task.ID, domain.TaskStatusActive, nil, now); err != nil {
		t.Fatalf("revive: %v", err)
	}
	got, err = store.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TimeRejected != nil || got.TimeCompleted != nil {
		t.Fatalf("active timestamps not cleared: %+v", got)
	}
}

func TestMemUserRepo_NameUniqueness(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	if err := store.Users().Create(ctx, &domain.User{Name: "alice", PasswordHash: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.Users().Create(ctx, &domain.User{Name: "alice", PasswordHash: "y"})
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("err = %v, want CONFLICT", err)
	}

	if _, err := store.Users().GetByName(ctx, "nobody"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("err = %v, want pgx.ErrNoRows", err)
	}
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}
