package repository

import (
	"context"

	"github.com/spec-kit/task-slot-service/internal/domain"
)

// RequesterRepository handles persistence for the requester role table.
type RequesterRepository interface {
	Create(ctx context.Context, requester *domain.Requester) error
	GetByID(ctx context.Context, id string) (*domain.Requester, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Requester, error)
}

// CertifierRepository handles persistence for the certifier role table.
type CertifierRepository interface {
	Create(ctx context.Context, certifier *domain.Certifier) error
	GetByUserID(ctx context.Context, userID string) (*domain.Certifier, error)
}

type requesterRepository struct {
	q Querier
}

func (r *requesterRepository) Create(ctx context.Context, requester *domain.Requester) error {
	const query = `
        INSERT INTO requesters (user_id, region, location)
        VALUES ($1, $2, $3)
        RETURNING requester_id`

	return r.q.QueryRow(ctx, query,
		requester.UserID,
		int(requester.Region),
		requester.Location,
	).Scan(&requester.ID)
}

func (r *requesterRepository) GetByID(ctx context.Context, id string) (*domain.Requester, error) {
	const query = `
        SELECT requester_id, user_id, region, location
        FROM requesters WHERE requester_id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *requesterRepository) GetByUserID(ctx context.Context, userID string) (*domain.Requester, error) {
	const query = `
        SELECT requester_id, user_id, region, location
        FROM requesters WHERE user_id=$1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *requesterRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Requester, error) {
	var (
		requester domain.Requester
		region    int
	)
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&requester.ID,
		&requester.UserID,
		&region,
		&requester.Location,
	); err != nil {
		return nil, err
	}
	requester.Region = domain.Region(region)
	return &requester, nil
}

type certifierRepository struct {
	q Querier
}

func (r *certifierRepository) Create(ctx context.Context, certifier *domain.Certifier) error {
	const query = `
        INSERT INTO certifiers (user_id)
        VALUES ($1)
        RETURNING certifier_id`

	return r.q.QueryRow(ctx, query, certifier.UserID).Scan(&certifier.ID)
}

func (r *certifierRepository) GetByUserID(ctx context.Context, userID string) (*domain.Certifier, error) {
	const query = `
        SELECT certifier_id, user_id
        FROM certifiers WHERE user_id=$1`

	var certifier domain.Certifier
	if err := r.q.QueryRow(ctx, query, userID).Scan(
		&certifier.ID,
		&certifier.UserID,
	); err != nil {
		return nil, err
	}
	return &certifier, nil
}
