package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/task-slot-service/internal/config"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/events"
	"github.com/spec-kit/task-slot-service/internal/persistence"
	"github.com/spec-kit/task-slot-service/internal/repository"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// SlotService exposes slot counts to polling clients. Query never mutates
// the ledger; a short-lived redis cache absorbs the poll traffic and is
// re-primed from lifecycle events after every committed transition.
type SlotService struct {
	store      repository.Store
	cache      *persistence.Redis
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.SlotsConfig
}

// NewSlotService constructs the service.
func NewSlotService(cfg config.SlotsConfig, store repository.Store, cache *persistence.Redis, dispatcher events.Dispatcher, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:      store,
		cache:      cache,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// EnsureRegions creates missing ledger rows at their configured capacity.
func (s *SlotService) EnsureRegions(ctx context.Context) error {
	for _, region := range domain.Regions() {
		capacity := s.cfg.Capacity(int(region))
		if capacity <= 0 {
			continue
		}
		if err := s.store.Slots().Ensure(ctx, region, capacity); err != nil {
			return fmt.Errorf("ensure region %d: %w", int(region), err)
		}
	}
	return nil
}

// Query returns the current slots_left for a region. Repeated calls without
// intervening writes return the same value.
func (s *SlotService) Query(ctx context.Context, region domain.Region) (int, error) {
	if !region.Valid() {
		return 0, apperrors.NewNotFound("region", map[string]any{"region": int(region)})
	}

	if left, ok := s.cacheGet(ctx, region); ok {
		return left, nil
	}

	record, err := s.store.Slots().Get(ctx, region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFound("region", map[string]any{"region": int(region)})
		}
		return 0, err
	}
	s.cacheSet(ctx, region, record.SlotsLeft)
	return record.SlotsLeft, nil
}

// Describe returns the full ledger row, bypassing the cache.
func (s *SlotService) Describe(ctx context.Context, region domain.Region) (*domain.SlotRecord, error) {
	if !region.Valid() {
		return nil, apperrors.NewNotFound("region", map[string]any{"region": int(region)})
	}
	record, err := s.store.Slots().Get(ctx, region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("region", map[string]any{"region": int(region)})
		}
		return nil, err
	}
	return record, nil
}

// Adjust applies a manual delta to the region's ledger on behalf of a
// certifier. Task transitions adjust the ledger through TaskService instead.
func (s *SlotService) Adjust(ctx context.Context, certifier *domain.Certifier, region domain.Region, delta int) (int, error) {
	if certifier == nil {
		return 0, apperrors.NewUnauthorized("certifier required")
	}
	if !region.Valid() {
		return 0, apperrors.NewNotFound("region", map[string]any{"region": int(region)})
	}

	var slotsLeft int
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		left, err := tx.Slots().Adjust(ctx, region, delta)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("region", map[string]any{"region": int(region)})
			}
			return err
		}
		slotsLeft = left
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSlotsAdjusted,
			Region:    int(region),
			Actor:     events.Actor{Role: domain.RoleCertifier, UserID: certifier.UserID},
			Timestamp: time.Now(),
			Payload: events.SlotsAdjustedPayload{
				Delta:     delta,
				SlotsLeft: slotsLeft,
			},
		})
	}
	return slotsLeft, nil
}

// RegisterHandlers subscribes cache maintenance to lifecycle events so polls
// observe committed slot counts without waiting for the TTL.
func (s *SlotService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTaskSubmitted, s.handleSlotsChanged)
	s.dispatcher.Subscribe(events.EventTaskStatusChanged, s.handleSlotsChanged)
	s.dispatcher.Subscribe(events.EventTaskDeleted, s.handleSlotsChanged)
	s.dispatcher.Subscribe(events.EventSlotsAdjusted, s.handleSlotsChanged)
}

func (s *SlotService) handleSlotsChanged(ctx context.Context, event events.Event) error {
	slotsLeft, ok := slotsLeftFromPayload(event.Payload)
	if !ok {
		return nil
	}
	s.cacheSet(ctx, domain.Region(event.Region), slotsLeft)
	return nil
}

func slotsLeftFromPayload(payload interface{}) (int, bool) {
	switch p := payload.(type) {
	case events.TaskSubmittedPayload:
		return p.SlotsLeft, true
	case events.TaskStatusChangedPayload:
		return p.SlotsLeft, true
	case events.TaskDeletedPayload:
		return p.SlotsLeft, true
	case events.SlotsAdjustedPayload:
		return p.SlotsLeft, true
	default:
		return 0, false
	}
}

func (s *SlotService) cacheGet(ctx context.Context, region domain.Region) (int, bool) {
	if s.cache == nil || s.cache.Client == nil {
		return 0, false
	}
	left, err := s.cache.Client.Get(ctx, slotCacheKey(region)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Debug("slot cache read failed", zap.Error(err))
		}
		return 0, false
	}
	return left, true
}

func (s *SlotService) cacheSet(ctx context.Context, region domain.Region, slotsLeft int) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	ttl := s.cfg.CacheTTL()
	if ttl <= 0 {
		return
	}
	if err := s.cache.Client.Set(ctx, slotCacheKey(region), slotsLeft, ttl).Err(); err != nil && s.logger != nil {
		s.logger.Debug("slot cache write failed", zap.Error(err))
	}
}

func slotCacheKey(region domain.Region) string {
	return fmt.Sprintf("slots:left:%d", int(region))
}
