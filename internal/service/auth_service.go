package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-slot-service/internal/auth"
	"github.com/spec-kit/task-slot-service/internal/config"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/repository"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	store      repository.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, store repository.Store) *AuthService {
	return &AuthService{
		store:      store,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterRequester creates the user row and the requester role row in one
// transaction. Region and location are fixed at registration.
func (s *AuthService) RegisterRequester(ctx context.Context, name, password string, region domain.Region, location string) (*domain.User, *domain.Requester, error) {
	if name == "" {
		return nil, nil, apperrors.NewValidationError("name is required", nil)
	}
	if password == "" {
		return nil, nil, apperrors.NewValidationError("password is required", nil)
	}
	if !region.Valid() {
		return nil, nil, apperrors.NewValidationError("unknown region", map[string]any{"region": int(region)})
	}
	if location == "" {
		return nil, nil, apperrors.NewValidationError("location is required", nil)
	}

	if _, err := s.store.Users().GetByName(ctx, name); err == nil {
		return nil, nil, apperrors.NewConflict("user name already registered", map[string]any{"name": name})
	} else if !errors.Is(err, pgx.ErrNoRows) && !apperrors.IsCode(err, "CONFLICT") {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{Name: name, PasswordHash: hash}
	requester := &domain.Requester{Region: region, Location: location}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		requester.UserID = user.ID
		return tx.Requesters().Create(ctx, requester)
	})
	if err != nil {
		return nil, nil, err
	}
	return user, requester, nil
}

// Login authenticates a user by name and password and issues a role-bearing
// token. Certifier privileges win when an account holds both roles.
func (s *AuthService) Login(ctx context.Context, name, password string) (*domain.User, domain.Role, string, error) {
	user, err := s.store.Users().GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", "", apperrors.NewUnauthorized("name not found")
		}
		return nil, "", "", err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", "", apperrors.NewUnauthorized("incorrect password")
	}

	role, err := s.resolveRole(ctx, user.ID)
	if err != nil {
		return nil, "", "", err
	}

	token, _, err := s.tokenMgr.GenerateToken(user.ID, role)
	if err != nil {
		return nil, "", "", err
	}
	return user, role, token, nil
}

func (s *AuthService) resolveRole(ctx context.Context, userID string) (domain.Role, error) {
	if _, err := s.store.Certifiers().GetByUserID(ctx, userID); err == nil {
		return domain.RoleCertifier, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if _, err := s.store.Requesters().GetByUserID(ctx, userID); err == nil {
		return domain.RoleRequester, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return "", apperrors.NewUnauthorized("account has no role")
}

// EnsureSeedCertifier bootstraps a certifier account when configured.
// Safe to call on every startup.
func (s *AuthService) EnsureSeedCertifier(ctx context.Context, name, password string) error {
	if name == "" || password == "" {
		return nil
	}

	user, err := s.store.Users().GetByName(ctx, name)
	if err == nil {
		if _, cerr := s.store.Certifiers().GetByUserID(ctx, user.ID); cerr == nil {
			return nil
		} else if !errors.Is(cerr, pgx.ErrNoRows) {
			return cerr
		}
		return s.store.Certifiers().Create(ctx, &domain.Certifier{UserID: user.ID})
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	seeded := &domain.User{Name: name, PasswordHash: hash}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, seeded); err != nil {
			return err
		}
		return tx.Certifiers().Create(ctx, &domain.Certifier{UserID: seeded.ID})
	})
}
