package service

import (
	"context"
	"testing"

	"github.com/spec-kit/task-slot-service/internal/config"
	"github.com/spec-kit/task-slot-service/internal/domain"
	"github.com/spec-kit/task-slot-service/internal/repository"
	apperrors "github.com/spec-kit/task-slot-service/pkg/util"
)

func newAuthService(store repository.Store) *AuthService {
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4, // min cost keeps the suite fast
		},
	}
	return NewAuthService(cfg, store)
}

func TestRegisterAndLogin_RoundTrip(t *testing.T) {
	store := repository.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, requester, err := svc.RegisterRequester(ctx, "alice", "s3cret", domain.Region1, "hq")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || requester.ID == "" {
		t.Fatalf("ids not assigned: user=%q requester=%q", user.ID, requester.ID)
	}
	if requester.UserID != user.ID {
		t.Fatalf("requester.user_id = %q, want %q", requester.UserID, user.ID)
	}
	if user.PasswordHash == "s3cret" {
		t.Fatal("password stored in the clear")
	}

	loggedIn, role, token, err := svc.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("login user = %q, want %q", loggedIn.ID, user.ID)
	}
	if role != domain.RoleRequester {
		t.Fatalf("role = %s, want requester", role)
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleRequester {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestRegisterRequester_DuplicateName(t *testing.T) {
	store := repository.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	if _, _, err := svc.RegisterRequester(ctx, "alice", "pw", domain.Region1, "hq"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, err := svc.RegisterRequester(ctx, "alice", "other", domain.Region2, "branch")
	if !apperrors.IsCode(err, "CONFLICT") {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
}

func TestRegisterRequester_Validation(t *testing.T) {
	store := repository.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	cases := []struct {
		name     string
		userName string
		password string
		region   domain.Region
		location string
	}{
		{"missing name", "", "pw", domain.Region1, "hq"},
		{"missing password", "alice", "", domain.Region1, "hq"},
		{"unknown region", "alice", "pw", domain.Region(7), "hq"},
		{"missing location", "alice", "pw", domain.Region1, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.RegisterRequester(ctx, tc.userName, tc.password, tc.region, tc.location)
			if !apperrors.IsCode(err, "VALIDATION_FAILED") {
				t.Fatalf("err = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	store := repository.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	if _, _, err := svc.RegisterRequester(ctx, "alice", "pw", domain.Region1, "hq"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "nobody", "pw"); !apperrors.IsCode(err, "UNAUTHORIZED") {
		t.Fatalf("unknown name: err = %v, want UNAUTHORIZED", err)
	}
	if _, _, _, err := svc.Login(ctx, "alice", "wrong"); !apperrors.IsCode(err, "UNAUTHORIZED") {
		t.Fatalf("wrong password: err = %v, want UNAUTHORIZED", err)
	}
}

func TestEnsureSeedCertifier_Idempotent(t *testing.T) {
	store := repository.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	if err := svc.EnsureSeedCertifier(ctx, "root-certifier", "pw"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.EnsureSeedCertifier(ctx, "root-certifier", "pw"); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	_, role, _, err := svc.Login(ctx, "root-certifier", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if role != domain.RoleCertifier {
		t.Fatalf("role = %s, want certifier", role)
	}
}

func TestLogin_CertifierRoleWinsOverRequester(t *testing.T) {
	store := repository.NewMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, _, err := svc.RegisterRequester(ctx, "dual", "pw", domain.Region1, "hq")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.Certifiers().Create(ctx, &domain.Certifier{UserID: user.ID}); err != nil {
		t.Fatalf("grant certifier: %v", err)
	}

	_, role, _, err := svc.Login(ctx, "dual", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if role != domain.RoleCertifier {
		t.Fatalf("role = %s, want certifier", role)
	}
}
