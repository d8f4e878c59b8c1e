package services_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/services"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/mocks"
)

var testKey *rsa.PrivateKey

func init() {
	var err error
	testKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
}

func newAuthService(repo *mocks.MockUserRepository, store *mocks.MockSessionStore) *services.AuthService {
	return services.NewAuthService(repo, store, testKey, 8*time.Hour).
		WithClock(func() time.Time { return mocks.TestTime })
}

func TestAuthService_Authenticate(t *testing.T) {
	inactive := mocks.CreateTestAdmin()
	inactive.ID = "ADM-009"
	inactive.Email = "former@labcorp.com"
	inactive.Status = domain.UserInactive

	tests := []struct {
		name      string
		email     string
		password  string
		setupMock func(*mocks.MockUserRepository, *mocks.MockSessionStore)
		wantErr   error
	}{
		{
			name:     "admin_signs_in",
			email:    "admin@labcorp.com",
			password: "anything",
		},
		{
			name:     "email_is_normalised",
			email:    "  Admin@LabCorp.com ",
			password: "anything",
		},
		{
			name:     "unknown_email_rejected",
			email:    "nope@x.com",
			password: "anything",
			wantErr:  domain.ErrAuthentication,
		},
		{
			name:     "customer_user_rejected",
			email:    "orders@northside.example",
			password: "anything",
			wantErr:  domain.ErrAuthentication,
		},
		{
			name:     "inactive_admin_rejected",
			email:    "former@labcorp.com",
			password: "anything",
			setupMock: func(r *mocks.MockUserRepository, _ *mocks.MockSessionStore) {
				r.SeedUser(inactive)
			},
			wantErr: domain.ErrAuthentication,
		},
		{
			name:     "empty_password_rejected",
			email:    "admin@labcorp.com",
			password: "",
			wantErr:  domain.ErrAuthentication,
		},
		{
			name:     "lookup_failure_is_generic",
			email:    "admin@labcorp.com",
			password: "anything",
			setupMock: func(r *mocks.MockUserRepository, _ *mocks.MockSessionStore) {
				r.FindByEmailError = errors.New("connection refused")
			},
			wantErr: domain.ErrAuthentication,
		},
		{
			name:     "store_failure_is_transient",
			email:    "admin@labcorp.com",
			password: "anything",
			setupMock: func(_ *mocks.MockUserRepository, s *mocks.MockSessionStore) {
				s.SetError = errors.New("redis down")
			},
			wantErr: domain.ErrTransientSessionWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewSeededRepository()
			store := mocks.NewMockSessionStore()
			if tt.setupMock != nil {
				tt.setupMock(repo, store)
			}
			svc := newAuthService(repo, store)

			session, token, err := svc.Authenticate(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if session != nil || token != "" {
					t.Error("expected no session or token on failure")
				}
				if tt.wantErr == domain.ErrAuthentication && store.Len() != 0 {
					t.Error("expected no stored session on rejection")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.User.ID != "ADM-001" || session.User.Role != domain.RoleAdmin {
				t.Errorf("unexpected session user %+v", session.User)
			}
			if session.IsImpersonating() {
				t.Error("fresh session must not be impersonating")
			}
			if !session.ExpiresAt.Equal(mocks.TestTime.Add(8 * time.Hour)) {
				t.Errorf("unexpected expiry %v", session.ExpiresAt)
			}
			if token == "" {
				t.Error("expected token")
			}
			if _, ok := store.Stored(session.ID); !ok {
				t.Error("expected session in store")
			}
		})
	}
}

func TestAuthService_SessionRoundTrip(t *testing.T) {
	repo := mocks.NewSeededRepository()
	store := mocks.NewMockSessionStore()
	svc := newAuthService(repo, store)
	ctx := context.Background()

	created, token, err := svc.Authenticate(ctx, "admin@labcorp.com", "pw")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	loaded, err := svc.Session(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.ID != created.ID {
		t.Errorf("expected session %s, got %s", created.ID, loaded.ID)
	}
	if id := loaded.Identity(); id.Kind != domain.IdentityAdmin {
		t.Errorf("expected admin identity, got %v", id.Kind)
	}
}

func TestAuthService_SessionReadsStoreNotToken(t *testing.T) {
	repo := mocks.NewSeededRepository()
	store := mocks.NewMockSessionStore()
	svc := newAuthService(repo, store)
	ctx := context.Background()

	created, token, err := svc.Authenticate(ctx, "admin@labcorp.com", "pw")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	// Overlay written to the store after the token was issued.
	next, _ := created.WithImpersonation("CUST-001", mocks.TestTime)
	if err := store.Set(ctx, next); err != nil {
		t.Fatal(err)
	}

	loaded, err := svc.Session(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id := loaded.Identity(); id.Kind != domain.IdentityAdminImpersonating || id.CustomerID != "CUST-001" {
		t.Errorf("expected impersonating identity from store, got %+v", id)
	}
}

func TestAuthService_SessionRejects(t *testing.T) {
	repo := mocks.NewSeededRepository()
	store := mocks.NewMockSessionStore()
	svc := newAuthService(repo, store)
	ctx := context.Background()

	_, token, err := svc.Authenticate(ctx, "admin@labcorp.com", "pw")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	forged := services.NewAuthService(repo, store, otherKey, time.Hour).
		WithClock(func() time.Time { return mocks.TestTime })
	forgedSession, _ := domain.NewSession(mocks.CreateTestAdmin(), time.Hour, mocks.TestTime)
	forgedToken, _ := forged.IssueToken(forgedSession)

	tests := []struct {
		name    string
		svc     *services.AuthService
		token   string
		wantErr error
	}{
		{name: "empty_token", svc: svc, token: "", wantErr: domain.ErrSessionNotFound},
		{name: "garbage_token", svc: svc, token: "not.a.jwt", wantErr: domain.ErrInvalidSession},
		{name: "wrong_signing_key", svc: svc, token: forgedToken, wantErr: domain.ErrInvalidSession},
		{
			name: "expired_token",
			svc: newAuthService(repo, store).
				WithClock(func() time.Time { return mocks.TestTime.Add(9 * time.Hour) }),
			token:   token,
			wantErr: domain.ErrInvalidSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Session(ctx, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	repo := mocks.NewSeededRepository()
	store := mocks.NewMockSessionStore()
	svc := newAuthService(repo, store)
	ctx := context.Background()

	session, token, err := svc.Authenticate(ctx, "admin@labcorp.com", "pw")
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.Stored(session.ID); ok {
		t.Error("expected session cleared")
	}
	if _, err := svc.Session(ctx, token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected not found after logout, got %v", err)
	}
}
