package handler

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

type ImpersonationHandler struct {
	impersonation ports.ImpersonationService
	authService   ports.AuthService
	customers     ports.CustomerRepository
	views         *views.Renderer
	cookie        SessionCookie
}

func NewImpersonationHandler(
	impersonation ports.ImpersonationService,
	auth ports.AuthService,
	customers ports.CustomerRepository,
	v *views.Renderer,
	cookie SessionCookie,
) *ImpersonationHandler {
	return &ImpersonationHandler{
		impersonation: impersonation,
		authService:   auth,
		customers:     customers,
		views:         v,
		cookie:        cookie,
	}
}

type ImpersonateRequest struct {
	CustomerID string `validate:"required,max=64"`
}

type customerRow struct {
	Customer domain.Customer
	Action   template.HTML
}

type customersPage struct {
	Rows  []customerRow
	Error string
}

// Customers lists accounts with a "view as customer" action for admins who
// are not already impersonating.
func (h *ImpersonationHandler) Customers(w http.ResponseWriter, r *http.Request) {
	h.renderCustomers(w, r, http.StatusOK, "")
}

func (h *ImpersonationHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := ImpersonateRequest{CustomerID: r.PostForm.Get("customerId")}
	if err := validate.Struct(req); err != nil {
		h.renderCustomers(w, r, http.StatusUnprocessableEntity, "Choose a customer to view.")
		return
	}

	next, err := h.impersonation.Start(r.Context(), session.ID, req.CustomerID, r.URL.Path)
	if err != nil {
		h.transitionFailed(w, r, err, "You are already viewing as a customer. Return to the admin view first.")
		return
	}

	h.reissue(w, r, next, "/")
}

func (h *ImpersonationHandler) End(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
		return
	}

	next, err := h.impersonation.End(r.Context(), session.ID, r.URL.Path)
	if err != nil {
		h.transitionFailed(w, r, err, "You are not viewing as a customer.")
		return
	}

	h.reissue(w, r, next, middleware.ChooseCustomerPath)
}

// reissue refreshes the token so its claims mirror the stored overlay, then
// redirects. The audit entry is already appended at this point.
func (h *ImpersonationHandler) reissue(w http.ResponseWriter, r *http.Request, next *domain.Session, location string) {
	token, err := h.authService.IssueToken(next)
	if err != nil {
		// The stored session is authoritative, so the old token still works.
		logging.Ctx(r.Context()).Error().Err(err).Msg("token reissue failed")
	} else {
		h.cookie.Set(w, token, next.ExpiresAt)
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// transitionFailed maps a start or end error to a response. stateMessage
// explains an ErrImpersonationState for the attempted transition.
func (h *ImpersonationHandler) transitionFailed(w http.ResponseWriter, r *http.Request, err error, stateMessage string) {
	switch {
	case errors.Is(err, domain.ErrImpersonationState):
		h.renderCustomers(w, r, http.StatusConflict, stateMessage)
	case errors.Is(err, domain.ErrTransientSessionWrite):
		h.renderCustomers(w, r, http.StatusServiceUnavailable, "Your session could not be updated. Please try again.")
	case errors.Is(err, domain.ErrCustomerNotFound):
		h.renderCustomers(w, r, http.StatusNotFound, "That customer does not exist.")
	case errors.Is(err, domain.ErrCustomerInactive):
		h.renderCustomers(w, r, http.StatusUnprocessableEntity, "That customer account is suspended and cannot be viewed.")
	case errors.Is(err, domain.ErrAuthorization):
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrInvalidSession):
		h.cookie.Clear(w)
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("impersonation transition failed")
		renderError(w, r, h.views, http.StatusInternalServerError, "Error", "Something went wrong.", middleware.ChooseCustomerPath)
	}
}

func (h *ImpersonationHandler) renderCustomers(w http.ResponseWriter, r *http.Request, status int, message string) {
	ctx := r.Context()

	customers, err := h.customers.ListCustomers(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("customer list failed")
		renderError(w, r, h.views, http.StatusServiceUnavailable, "Customers", "Customers could not be loaded.", "/")
		return
	}

	rows, err := h.customerRows(ctx, customers)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("customer actions failed to render")
		renderError(w, r, h.views, http.StatusInternalServerError, "Customers", "Customers could not be shown.", "/")
		return
	}

	meta := views.PageMeta{Title: "Customers", CustomerName: h.activeCustomerName(ctx, customers)}
	render(w, r, status, h.views.Page(meta, h.views.Fragment("customers", customersPage{Rows: rows, Error: message})))
}

func (h *ImpersonationHandler) customerRows(ctx context.Context, customers []domain.Customer) ([]customerRow, error) {
	rows := make([]customerRow, 0, len(customers))
	for _, c := range customers {
		var action template.HTML
		if c.Status == domain.CustomerActive {
			html, err := views.HTML(ctx, views.AdminOnly(
				views.FeatureGate(permissions.FeatureImpersonation, h.views.Fragment("impersonate_button", c), nil),
				nil,
			))
			if err != nil {
				return nil, err
			}
			action = html
		}
		rows = append(rows, customerRow{Customer: c, Action: action})
	}
	return rows, nil
}

func (h *ImpersonationHandler) activeCustomerName(ctx context.Context, customers []domain.Customer) string {
	id, ok := middleware.IdentityFromContext(ctx).ActiveCustomerID()
	if !ok {
		return ""
	}
	for _, c := range customers {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
