package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/metrics"
)

// ChooseCustomerPath is where admins land when a page needs a customer
// context they have not picked yet.
const ChooseCustomerPath = "/admin/customers"

type Outcome int

const (
	Allow Outcome = iota
	RedirectSignIn
	RedirectChooseCustomer
)

func (o Outcome) String() string {
	switch o {
	case RedirectSignIn:
		return "redirect_signin"
	case RedirectChooseCustomer:
		return "redirect_choose_customer"
	default:
		return "allow"
	}
}

type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide classifies a request. Public paths are always allowed. Anonymous
// requests go to sign-in with the original path as callbackUrl. Requests that
// lack the role for a path go to sign-in without a callback: there is no 403.
// The admin check uses the raw role, so an impersonating admin can still reach
// /admin to end impersonation.
func Decide(u *url.URL, id domain.EffectiveIdentity) Decision {
	path := u.Path
	access := permissions.RouteAccess(path)

	if access == permissions.AccessPublic {
		return Decision{Outcome: Allow}
	}

	if !id.IsAuthenticated() {
		callback := url.Values{"callbackUrl": {u.RequestURI()}}
		return Decision{Outcome: RedirectSignIn, Location: permissions.SignInPath + "?" + callback.Encode()}
	}

	if access == permissions.AccessAdmin && !id.IsAdmin() {
		return Decision{Outcome: RedirectSignIn, Location: permissions.SignInPath}
	}
	if !permissions.CanAccessScreen(path, id.IsAdmin()) {
		return Decision{Outcome: RedirectSignIn, Location: permissions.SignInPath}
	}

	if permissions.RequiresCustomerContext(path) {
		if _, ok := id.ActiveCustomerID(); !ok {
			if id.IsAdmin() {
				return Decision{Outcome: RedirectChooseCustomer, Location: ChooseCustomerPath}
			}
			return Decision{Outcome: RedirectSignIn, Location: permissions.SignInPath}
		}
	}

	return Decision{Outcome: Allow}
}

// SessionResolver loads the authoritative session named by a token.
type SessionResolver interface {
	Session(ctx context.Context, token string) (*domain.Session, error)
}

type RouteGuard struct {
	sessions   SessionResolver
	cookieName string
}

func NewRouteGuard(sessions SessionResolver, cookieName string) *RouteGuard {
	return &RouteGuard{sessions: sessions, cookieName: cookieName}
}

// Handler resolves the session once per request, applies Decide and, when
// allowed, passes the session on in the request context.
func (g *RouteGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Public paths skip the store so health and sign-in survive an outage.
		if permissions.RouteAccess(r.URL.Path) == permissions.AccessPublic {
			metrics.RouteDecisions.WithLabelValues(Allow.String()).Inc()
			next.ServeHTTP(w, r)
			return
		}

		session, err := g.resolve(ctx, r)
		if err != nil && errors.Is(err, domain.ErrTransientSessionWrite) {
			logging.Ctx(ctx).Error().Err(err).Msg("session store unavailable")
			metrics.RouteDecisions.WithLabelValues("store_error").Inc()
			http.Error(w, "session store unavailable, please retry", http.StatusServiceUnavailable)
			return
		}

		decision := Decide(r.URL, domain.IdentityOf(session))
		metrics.RouteDecisions.WithLabelValues(decision.Outcome.String()).Inc()

		if decision.Outcome != Allow {
			logging.Ctx(ctx).Debug().
				Str("path", r.URL.Path).
				Str("decision", decision.Outcome.String()).
				Msg("route guard redirect")
			http.Redirect(w, r, decision.Location, http.StatusFound)
			return
		}

		if session != nil {
			ctx = WithSession(ctx, session)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolve returns nil with no error for anonymous requests. Invalid or
// expired tokens are treated as anonymous.
func (g *RouteGuard) resolve(ctx context.Context, r *http.Request) (*domain.Session, error) {
	token := TokenFromRequest(r, g.cookieName)
	if token == "" {
		return nil, nil
	}

	session, err := g.sessions.Session(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrTransientSessionWrite) {
			return nil, err
		}
		logging.Ctx(ctx).Debug().Err(err).Msg("discarding session token")
		return nil, nil
	}
	return session, nil
}

// TokenFromRequest reads the session token from a Bearer header, falling
// back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
