package handler

import (
	"errors"
	"net/http"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

// signInFailed is the only message shown for a rejected sign-in.
const signInFailed = "Invalid email or password."

type AuthHandler struct {
	authService ports.AuthService
	views       *views.Renderer
	cookie      SessionCookie
}

func NewAuthHandler(auth ports.AuthService, v *views.Renderer, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{authService: auth, views: v, cookie: cookie}
}

type SignInRequest struct {
	Email       string `validate:"required,email,max=254"`
	Password    string `validate:"required,max=256"`
	CallbackURL string `validate:"max=2048"`
}

type signInPage struct {
	Email       string
	CallbackURL string
	Error       string
}

func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.renderSignIn(w, r, http.StatusOK, signInPage{CallbackURL: safeCallback(r.URL.Query().Get("callbackUrl"))})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := SignInRequest{
		Email:       r.PostForm.Get("email"),
		Password:    r.PostForm.Get("password"),
		CallbackURL: r.PostForm.Get("callbackUrl"),
	}
	page := signInPage{Email: req.Email, CallbackURL: safeCallback(req.CallbackURL)}

	if err := validate.Struct(req); err != nil {
		page.Error = signInFailed
		h.renderSignIn(w, r, http.StatusUnauthorized, page)
		return
	}

	session, token, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTransientSessionWrite):
		logging.Ctx(r.Context()).Error().Err(err).Msg("sign-in could not store session")
		page.Error = "Sign-in is temporarily unavailable. Please try again."
		h.renderSignIn(w, r, http.StatusServiceUnavailable, page)
		return
	default:
		page.Error = signInFailed
		h.renderSignIn(w, r, http.StatusUnauthorized, page)
		return
	}

	h.cookie.Set(w, token, session.ExpiresAt)
	http.Redirect(w, r, page.CallbackURL, http.StatusSeeOther)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r, h.cookie.Name); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("logout could not clear session")
		}
	}
	h.cookie.Clear(w)
	http.Redirect(w, r, permissions.SignInPath, http.StatusSeeOther)
}

func (h *AuthHandler) renderSignIn(w http.ResponseWriter, r *http.Request, status int, page signInPage) {
	render(w, r, status, h.views.Page(views.PageMeta{Title: "Sign in"}, h.views.Fragment("signin", page)))
}
