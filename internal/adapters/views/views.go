package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("portal").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Fragment wraps a named template as a component.
func (r *Renderer) Fragment(name string, data any) templ.Component {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			return fmt.Errorf("template %q not found", name)
		})
	}
	return templ.FromGoHTML(t, data)
}

// HTML renders a component to a value html/template embeds unescaped.
func HTML(ctx context.Context, c templ.Component) (template.HTML, error) {
	return templ.ToGoHTML(ctx, c)
}

// PageMeta describes the chrome around a page body.
type PageMeta struct {
	Title string
	// CustomerName labels the impersonation banner.
	CustomerName string
	Flash        string
}

type navItem struct {
	Label  string
	Href   string
	Active bool
}

type chromeData struct {
	PageMeta
	UserName   string
	SignedIn   bool
	CustomerID string
}

// Page renders body inside the layout. Navigation and the impersonation banner
// are gated per render from the identity in ctx.
func (r *Renderer) Page(meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data := chromeData{PageMeta: meta}
		if s, ok := middleware.SessionFromContext(ctx); ok {
			data.SignedIn = true
			data.UserName = s.User.Name
			data.CustomerID, _ = s.ActiveCustomerID()
		}

		parts := []templ.Component{
			r.Fragment("layout_head", data),
			Impersonating(r.Fragment("impersonation_banner", data)),
			r.nav(data.SignedIn, meta.Title),
			r.Fragment("layout_main_open", data),
			body,
			r.Fragment("layout_foot", data),
		}
		for _, c := range parts {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Renderer) nav(signedIn bool, current string) templ.Component {
	if !signedIn {
		return templ.NopComponent
	}

	link := func(label, href string) templ.Component {
		return r.Fragment("nav_link", navItem{Label: label, Href: href, Active: label == current})
	}

	items := []templ.Component{
		link("Dashboard", "/"),
		CustomerOnly(link("Orders", "/orders"), nil),
		CustomerOnly(link("Sites", "/sites"), nil),
		CustomerOnly(FeatureGate(permissions.FeatureOrderKits, link("Order Kits", "/order-kits"), nil), nil),
		AdminOnly(link("Customers", "/admin/customers"), nil),
		AdminOnly(FeatureGate(permissions.FeatureProgramEnrollment, link("Programs", "/programs/single-site"), nil), nil),
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<nav class="portal-nav"><ul>`); err != nil {
			return err
		}
		for _, c := range items {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		if err := r.Fragment("nav_signout", nil).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</ul></nav>`)
		return err
	})
}
