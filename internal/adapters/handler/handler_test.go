package handler_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/handler"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/catalog"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/services"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/mocks"
)

const cookieName = "portal_session"

var signingKey = func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}()

type fixture struct {
	repo   *mocks.MockUserRepository
	store  *mocks.MockSessionStore
	audit  *mocks.MockAuditSink
	redis  *mocks.MockRedisClient
	auth   *services.AuthService
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:  mocks.NewSeededRepository(),
		store: mocks.NewMockSessionStore(),
		audit: mocks.NewMockAuditSink(),
		redis: mocks.NewMockRedisClient(),
	}
	f.auth = services.NewAuthService(f.repo, f.store, signingKey, 8*time.Hour)
	impersonation := services.NewImpersonationService(f.store, f.repo, f.audit)

	renderer, err := views.NewRenderer()
	if err != nil {
		t.Fatalf("failed to parse templates: %v", err)
	}
	cookie := handler.SessionCookie{Name: cookieName}

	f.router = handler.NewRouter(handler.RouterConfig{
		Guard:         middleware.NewRouteGuard(f.auth, cookieName),
		Auth:          handler.NewAuthHandler(f.auth, renderer, cookie),
		Impersonation: handler.NewImpersonationHandler(impersonation, f.auth, f.repo, renderer, cookie),
		Portal:        handler.NewPortalHandler(catalog.NewSeedCatalog(), f.repo, impersonation, renderer),
		Health: handler.NewHealthHandler("test", handler.NamedCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return f.redis.Ping(ctx).Err() },
		}),
		SignInRequests: 100,
		SignInWindow:   time.Minute,
	})
	return f
}

// adminToken signs the test admin in through the service.
func (f *fixture) adminToken(t *testing.T) (string, *domain.Session) {
	t.Helper()
	s, token, err := f.auth.Authenticate(context.Background(), "admin@labcorp.com", "secret")
	if err != nil {
		t.Fatalf("admin sign-in failed: %v", err)
	}
	return token, s
}

// customerToken stores a customer session directly; customers cannot sign in.
func (f *fixture) customerToken(t *testing.T) string {
	t.Helper()
	s, err := domain.NewSession(mocks.CreateTestCustomerUser("CUST-001"), time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Set(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	token, err := f.auth.IssueToken(s)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (f *fixture) do(method, target, token string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}
