package handler

import (
	"context"
	"encoding/csv"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/catalog"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

// PortalHandler serves the customer-facing pages. Every page reads the
// effective identity from the request context set by the route guard.
type PortalHandler struct {
	catalog       *catalog.Catalog
	customers     ports.CustomerRepository
	impersonation ports.ImpersonationService
	views         *views.Renderer
}

func NewPortalHandler(
	c *catalog.Catalog,
	customers ports.CustomerRepository,
	impersonation ports.ImpersonationService,
	v *views.Renderer,
) *PortalHandler {
	return &PortalHandler{catalog: c, customers: customers, impersonation: impersonation, views: v}
}

type dashboardPage struct {
	Metrics    catalog.DashboardMetrics
	AdminTiles template.HTML
	Actions    template.HTML
}

func (h *PortalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := middleware.IdentityFromContext(ctx)

	customerID, _ := id.ActiveCustomerID()
	if id.ShowsAdminFeatures() {
		customerID = ""
	}
	page := dashboardPage{Metrics: h.catalog.Dashboard(customerID)}

	var err error
	if page.AdminTiles, err = views.HTML(ctx, views.AdminOnly(h.views.Fragment("dashboard_admin_tiles", page.Metrics), nil)); err != nil {
		h.renderFailed(w, r, err)
		return
	}
	actions := views.RoleSwitch(
		h.views.Fragment("dashboard_admin_actions", nil),
		views.FeatureGate(permissions.FeatureOrderKits, h.views.Fragment("dashboard_customer_actions", nil), nil),
	)
	if page.Actions, err = views.HTML(ctx, actions); err != nil {
		h.renderFailed(w, r, err)
		return
	}

	h.renderPage(w, r, "Dashboard", h.views.Fragment("dashboard", page))
}

type ordersPage struct {
	Query        catalog.OrderQuery
	Statuses     []catalog.OrderStatus
	ExportButton template.HTML
	SortLinks    map[string]string
	Page         catalog.Page[catalog.Order]
	PrevURL      string
	NextURL      string
}

var orderStatuses = []catalog.OrderStatus{
	catalog.OrderPending, catalog.OrderShipped, catalog.OrderDelivered, catalog.OrderResulted, catalog.OrderCancelled,
}

func (h *PortalHandler) Orders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, ok := middleware.IdentityFromContext(ctx).ActiveCustomerID()
	if !ok {
		http.Redirect(w, r, middleware.ChooseCustomerPath, http.StatusFound)
		return
	}

	q := catalog.ParseOrderQuery(r.URL.Query())
	result := q.Apply(h.catalog.Orders(customerID))

	page := ordersPage{
		Query:     q,
		Statuses:  orderStatuses,
		SortLinks: sortLinks(r.URL.Query(), q),
		Page:      result,
	}
	if result.HasPrev() {
		page.PrevURL = withParam(r.URL.Query(), "page", strconv.Itoa(result.Page-1))
	}
	if result.HasNext() {
		page.NextURL = withParam(r.URL.Query(), "page", strconv.Itoa(result.Page+1))
	}

	exportURL := "/orders/export.csv"
	if qs := exportQuery(r.URL.Query()); qs != "" {
		exportURL += "?" + qs
	}
	button, err := views.HTML(ctx, views.FeatureGate(permissions.FeatureOrderExport, h.views.Fragment("orders_export_button", exportURL), nil))
	if err != nil {
		h.renderFailed(w, r, err)
		return
	}
	page.ExportButton = button

	h.renderPage(w, r, "Orders", h.views.Fragment("orders", page))
}

// ExportOrders writes the filtered, sorted order list as CSV. An admin
// viewing as a customer is reading patient references, so the export is
// audited first and refused if the audit entry cannot be written.
func (h *PortalHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
		return
	}
	customerID, ok := session.ActiveCustomerID()
	if !ok {
		http.Redirect(w, r, middleware.ChooseCustomerPath, http.StatusFound)
		return
	}
	if !permissions.CanAccessFeature(permissions.FeatureOrderExport, session.IsAdmin()) {
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
		return
	}

	q := catalog.ParseOrderQuery(r.URL.Query())
	orders := q.Sorted(h.catalog.Orders(customerID))

	details := map[string]string{
		"format": "csv",
		"rows":   strconv.Itoa(len(orders)),
	}
	if err := h.impersonation.RecordAction(ctx, session, domain.AuditPatientDataAccess, r.URL.Path, details); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("customer_id", customerID).Msg("export audit failed")
		http.Error(w, "export is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="orders-`+customerID+`.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"order_id", "ordered_at", "site", "kit", "quantity", "status", "patient_ref"})
	for _, o := range orders {
		_ = cw.Write([]string{
			o.ID,
			o.OrderedAt.UTC().Format("2006-01-02"),
			o.SiteName,
			o.KitName,
			strconv.Itoa(o.Quantity),
			string(o.Status),
			o.PatientRef,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("order export interrupted")
	}
}

type sitesPage struct {
	Toolbar template.HTML
	Sites   []catalog.Site
}

func (h *PortalHandler) Sites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, ok := middleware.IdentityFromContext(ctx).ActiveCustomerID()
	if !ok {
		http.Redirect(w, r, middleware.ChooseCustomerPath, http.StatusFound)
		return
	}

	// Bulk import is gated on the raw role, so an impersonating admin keeps it.
	toolbar, err := views.HTML(ctx, views.FeatureGate(permissions.FeatureBulkSiteImport,
		h.views.Fragment("sites_admin_toolbar", nil),
		h.views.Fragment("sites_readonly_note", nil),
	))
	if err != nil {
		h.renderFailed(w, r, err)
		return
	}

	h.renderPage(w, r, "Sites", h.views.Fragment("sites", sitesPage{Toolbar: toolbar, Sites: h.catalog.Sites(customerID)}))
}

type orderKitsForm struct {
	Error string
	Sites []catalog.Site
	Kits  []catalog.Kit
}

type OrderKitsRequest struct {
	SiteID   string `validate:"required,max=64"`
	KitCode  string `validate:"required,max=64"`
	Quantity int    `validate:"required,min=1,max=500"`
}

type orderKitsPlaced struct {
	Quantity int
	KitName  string
	SiteName string
}

func (h *PortalHandler) OrderKitsForm(w http.ResponseWriter, r *http.Request) {
	customerID, ok := middleware.IdentityFromContext(r.Context()).ActiveCustomerID()
	if !ok {
		http.Redirect(w, r, middleware.ChooseCustomerPath, http.StatusFound)
		return
	}
	h.renderOrderKits(w, r, http.StatusOK, customerID, "")
}

// PlaceKitOrder validates a kit request against the active customer's sites.
// Orders are confirmed but not persisted.
func (h *PortalHandler) PlaceKitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		http.Redirect(w, r, permissions.SignInPath, http.StatusFound)
		return
	}
	customerID, ok := session.ActiveCustomerID()
	if !ok {
		http.Redirect(w, r, middleware.ChooseCustomerPath, http.StatusFound)
		return
	}
	if !permissions.CanAccessFeature(permissions.FeatureOrderKits, session.IsAdmin()) {
		h.renderPage(w, r, "Order Kits", h.views.Fragment("order_kits_denied", nil))
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	qty, _ := strconv.Atoi(r.PostForm.Get("quantity"))
	req := OrderKitsRequest{
		SiteID:   r.PostForm.Get("siteId"),
		KitCode:  r.PostForm.Get("kitCode"),
		Quantity: qty,
	}
	if err := validate.Struct(req); err != nil {
		h.renderOrderKits(w, r, http.StatusUnprocessableEntity, customerID, "Choose a site, a kit and a quantity between 1 and 500.")
		return
	}

	site, ok := findSite(h.catalog.Sites(customerID), req.SiteID)
	if !ok || !site.Active {
		h.renderOrderKits(w, r, http.StatusUnprocessableEntity, customerID, "That site is not available for ordering.")
		return
	}
	kit, ok := h.catalog.Kit(req.KitCode)
	if !ok {
		h.renderOrderKits(w, r, http.StatusUnprocessableEntity, customerID, "That kit is not available.")
		return
	}

	details := map[string]string{
		"site_id":  site.ID,
		"kit_code": kit.Code,
		"quantity": strconv.Itoa(req.Quantity),
	}
	if err := h.impersonation.RecordAction(ctx, session, domain.AuditImpersonatedAction, r.URL.Path, details); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("kit order audit failed")
		h.renderOrderKits(w, r, http.StatusServiceUnavailable, customerID, "The order could not be placed. Please try again.")
		return
	}

	logging.Ctx(ctx).Info().
		Str("customer_id", customerID).
		Str("site_id", site.ID).
		Str("kit_code", kit.Code).
		Int("quantity", req.Quantity).
		Msg("kit order requested")

	placed := orderKitsPlaced{Quantity: req.Quantity, KitName: kit.Name, SiteName: site.Name}
	h.renderPage(w, r, "Order Kits", h.views.Fragment("order_kits_placed", placed))
}

type programPage struct {
	Description string
	Customers   []domain.Customer
}

var programs = map[string]struct {
	title       string
	description string
	multiSite   bool
}{
	"single-site": {title: "Single-site programs", description: "Customers enrolled with one collection site."},
	"multi-site":  {title: "Multi-site programs", description: "Customers enrolled across several collection sites.", multiSite: true},
}

func (h *PortalHandler) Program(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	program, ok := programs[chi.URLParam(r, "program")]
	if !ok {
		renderError(w, r, h.views, http.StatusNotFound, "Not found", "That program does not exist.", "/")
		return
	}

	customers, err := h.customers.ListCustomers(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("customer list failed")
		renderError(w, r, h.views, http.StatusServiceUnavailable, program.title, "Customers could not be loaded.", "/")
		return
	}

	enrolled := catalog.Filter(customers, func(c domain.Customer) bool {
		active := catalog.Filter(h.catalog.Sites(c.ID), func(s catalog.Site) bool { return s.Active })
		if program.multiSite {
			return len(active) > 1
		}
		return len(active) == 1
	})

	h.renderPage(w, r, program.title, h.views.Fragment("program", programPage{Description: program.description, Customers: enrolled}))
}

func (h *PortalHandler) renderOrderKits(w http.ResponseWriter, r *http.Request, status int, customerID, message string) {
	form := orderKitsForm{Error: message, Sites: h.catalog.Sites(customerID), Kits: h.catalog.Kits()}
	body := views.FeatureGate(permissions.FeatureOrderKits,
		h.views.Fragment("order_kits", form),
		h.views.Fragment("order_kits_denied", nil),
	)
	render(w, r, status, h.views.Page(h.meta(r.Context(), "Order Kits"), body))
}

func (h *PortalHandler) renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	render(w, r, http.StatusOK, h.views.Page(h.meta(r.Context(), title), body))
}

func (h *PortalHandler) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("page fragment failed")
	http.Error(w, "failed to render page", http.StatusInternalServerError)
}

// meta names the impersonated customer for the banner.
func (h *PortalHandler) meta(ctx context.Context, title string) views.PageMeta {
	meta := views.PageMeta{Title: title}
	id := middleware.IdentityFromContext(ctx)
	if id.Kind != domain.IdentityAdminImpersonating {
		return meta
	}
	customerID, _ := id.ActiveCustomerID()
	if c, err := h.customers.FindCustomer(ctx, customerID); err == nil {
		meta.CustomerName = c.Name
	}
	return meta
}

func findSite(sites []catalog.Site, id string) (catalog.Site, bool) {
	for _, s := range sites {
		if s.ID == id {
			return s, true
		}
	}
	return catalog.Site{}, false
}

// sortLinks builds the column header links. Clicking the active column flips
// its direction; other columns start descending.
func sortLinks(current url.Values, q catalog.OrderQuery) map[string]string {
	links := make(map[string]string, 5)
	for _, key := range []string{"date", "id", "site", "status", "quantity"} {
		v := cloneValues(current)
		v.Set("sort", key)
		v.Del("page")
		if key == q.Sort && q.Desc {
			v.Set("dir", "asc")
		} else {
			v.Set("dir", "desc")
		}
		links[key] = "/orders?" + v.Encode()
	}
	return links
}

func withParam(current url.Values, key, value string) string {
	v := cloneValues(current)
	v.Set(key, value)
	return "/orders?" + v.Encode()
}

// exportQuery keeps filter and sort state but drops paging.
func exportQuery(current url.Values) string {
	v := cloneValues(current)
	v.Del("page")
	v.Del("size")
	return v.Encode()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
