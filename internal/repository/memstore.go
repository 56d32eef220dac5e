package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-slot-service/internal/domain"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// MemStore is an in-memory Store. It backs the service when no Postgres DSN
// is configured and gives tests an honest implementation of the same
// contracts: absent rows surface as pgx.ErrNoRows, slot bounds surface as
// SLOT_EXHAUSTED / SLOT_OVERFLOW, and WithinTx is all-or-nothing.
type MemStore struct {
	txMu sync.Mutex   // serializes units of work
	mu   sync.RWMutex // guards the maps below

	users         map[string]domain.User
	userIDsByName map[string]string
	requesters    map[string]domain.Requester
	certifiers    map[string]domain.Certifier
	tasks         map[string]domain.Task
	slots         map[domain.Region]domain.SlotRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:         make(map[string]domain.User),
		userIDsByName: make(map[string]string),
		requesters:    make(map[string]domain.Requester),
		certifiers:    make(map[string]domain.Certifier),
		tasks:         make(map[string]domain.Task),
		slots:         make(map[domain.Region]domain.SlotRecord),
	}
}

func (s *MemStore) Users() UserRepository           { return &memUserRepo{s: s} }
func (s *MemStore) Requesters() RequesterRepository { return &memRequesterRepo{s: s} }
func (s *MemStore) Certifiers() CertifierRepository { return &memCertifierRepo{s: s} }
func (s *MemStore) Tasks() TaskRepository           { return &memTaskRepo{s: s} }
func (s *MemStore) Slots() SlotRepository           { return &memSlotRepo{s: s} }

// WithinTx serializes units of work behind a single lock and restores the
// pre-transaction state when fn fails, so a failed transition leaves both
// the task map and the slot ledger untouched.
func (s *MemStore) WithinTx(_ context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users         map[string]domain.User
	userIDsByName map[string]string
	requesters    map[string]domain.Requester
	certifiers    map[string]domain.Certifier
	tasks         map[string]domain.Task
	slots         map[domain.Region]domain.SlotRecord
}

func (s *MemStore) snapshot() memSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memSnapshot{
		users:         copyMap(s.users),
		userIDsByName: copyMap(s.userIDsByName),
		requesters:    copyMap(s.requesters),
		certifiers:    copyMap(s.certifiers),
		tasks:         copyMap(s.tasks),
		slots:         copyMap(s.slots),
	}
}

func (s *MemStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.userIDsByName = snap.userIDsByName
	s.requesters = snap.requesters
	s.certifiers = snap.certifiers
	s.tasks = snap.tasks
	s.slots = snap.slots
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type memUserRepo struct {
	s *MemStore
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.userIDsByName[user.Name]; exists {
		return apperrors.NewConflict("user name already registered", map[string]any{"name": user.Name})
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.s.users[user.ID] = *user
	r.s.userIDsByName[user.Name] = user.ID
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memUserRepo) GetByName(_ context.Context, name string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.userIDsByName[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := r.s.users[id]
	return &user, nil
}

type memRequesterRepo struct {
	s *MemStore
}

func (r *memRequesterRepo) Create(_ context.Context, requester *domain.Requester) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if requester.ID == "" {
		requester.ID = uuid.NewString()
	}
	r.s.requesters[requester.ID] = *requester
	return nil
}

func (r *memRequesterRepo) GetByID(_ context.Context, id string) (*domain.Requester, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	requester, ok := r.s.requesters[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &requester, nil
}

func (r *memRequesterRepo) GetByUserID(_ context.Context, userID string) (*domain.Requester, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, requester := range r.s.requesters {
		if requester.UserID == userID {
			match := requester
			return &match, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memCertifierRepo struct {
	s *MemStore
}

func (r *memCertifierRepo) Create(_ context.Context, certifier *domain.Certifier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if certifier.ID == "" {
		certifier.ID = uuid.NewString()
	}
	r.s.certifiers[certifier.ID] = *certifier
	return nil
}

func (r *memCertifierRepo) GetByUserID(_ context.Context, userID string) (*domain.Certifier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, certifier := range r.s.certifiers {
		if certifier.UserID == userID {
			match := certifier
			return &match, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTaskRepo struct {
	s *MemStore
}

func (r *memTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.TimeSubmitted.IsZero() {
		task.TimeSubmitted = time.Now().UTC()
	}
	r.s.tasks[task.ID] = *task
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	task, ok := r.s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &task, nil
}

func (r *memTaskRepo) UpdateStatus(_ context.Context, id string, status domain.TaskStatus, certifierID *string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task, ok := r.s.tasks[id]
	if !ok {
		return pgx.ErrNoRows
	}
	task.Status = status
	task.TimeCompleted = nil
	task.TimeRejected = nil
	switch status {
	case domain.TaskStatusCompleted:
		ts := at
		task.TimeCompleted = &ts
	case domain.TaskStatusRejected:
		ts := at
		task.TimeRejected = &ts
	}
	if certifierID != nil {
		cid := *certifierID
		task.CertifierID = &cid
	}
	r.s.tasks[task.ID] = task
	return nil
}

func (r *memTaskRepo) UpdateDetails(_ context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tasks[task.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = task.Name
	stored.Description = task.Description
	stored.ProjectNumber = task.ProjectNumber
	stored.Notes = task.Notes
	r.s.tasks[task.ID] = stored
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tasks, id)
	return nil
}

func (r *memTaskRepo) List(_ context.Context, filter TaskFilter) ([]domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Task
	for _, task := range r.s.tasks {
		if filter.RequesterID != nil && task.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.CertifierID != nil && (task.CertifierID == nil || *task.CertifierID != *filter.CertifierID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, task.Status) {
			continue
		}
		result = append(result, task)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimeSubmitted.Equal(result[j].TimeSubmitted) {
			return result[i].ID < result[j].ID
		}
		return result[i].TimeSubmitted.Before(result[j].TimeSubmitted)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *memTaskRepo) CountActiveByRegion(_ context.Context, region domain.Region) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, task := range r.s.tasks {
		if task.Status != domain.TaskStatusActive {
			continue
		}
		requester, ok := r.s.requesters[task.RequesterID]
		if !ok || requester.Region != region {
			continue
		}
		count++
	}
	return count, nil
}

func containsStatus(statuses []domain.TaskStatus, status domain.TaskStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

type memSlotRepo struct {
	s *MemStore
}

func (r *memSlotRepo) Get(_ context.Context, region domain.Region) (*domain.SlotRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	record, ok := r.s.slots[region]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &record, nil
}

func (r *memSlotRepo) Adjust(_ context.Context, region domain.Region, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record, ok := r.s.slots[region]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	next := record.SlotsLeft + delta
	if next < 0 {
		return 0, apperrors.NewSlotExhausted(int(region))
	}
	if next > record.Capacity {
		return 0, apperrors.NewSlotOverflow(int(region))
	}
	record.SlotsLeft = next
	record.LastUpdated = time.Now().UTC()
	r.s.slots[region] = record
	return next, nil
}

func (r *memSlotRepo) Ensure(_ context.Context, region domain.Region, capacity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.slots[region]; ok {
		return nil
	}
	r.s.slots[region] = domain.SlotRecord{
		Region:      region,
		SlotsLeft:   capacity,
		Capacity:    capacity,
		LastUpdated: time.Now().UTC(),
	}
	return nil
}
