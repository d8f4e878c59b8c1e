// Package handler serves the portal's HTTP endpoints.
package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SessionCookie writes and clears the session token cookie.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (c SessionCookie) Set(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// render writes a component with status. Render errors after the header is
// written are logged by templ's handler.
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("render failed")
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "failed to render page", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

type errorPage struct {
	Message string
	Back    string
}

func renderError(w http.ResponseWriter, r *http.Request, v *views.Renderer, status int, title, message, back string) {
	render(w, r, status, v.Page(views.PageMeta{Title: title}, v.Fragment("error", errorPage{Message: message, Back: back})))
}

// safeCallback keeps post-sign-in redirects on this site: only absolute
// local paths are accepted, anything else becomes "/".
func safeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	if strings.HasPrefix(u.Path, "/auth/") {
		return "/"
	}
	return u.RequestURI()
}
