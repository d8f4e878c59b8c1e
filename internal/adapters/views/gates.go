// Package views renders the portal pages. Page bodies are html/template
// fragments wrapped as templ components; permission gates are templ
// components that read the effective identity from the render context.
package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
)

// gate picks children or fallback per render. A nil branch renders nothing.
func gate(show func(domain.EffectiveIdentity) bool, children, fallback templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		c := fallback
		if show(middleware.IdentityFromContext(ctx)) {
			c = children
		}
		if c == nil {
			return nil
		}
		return c.Render(ctx, w)
	})
}

// AdminOnly renders children for an admin who is not impersonating.
func AdminOnly(children, fallback templ.Component) templ.Component {
	return gate(domain.EffectiveIdentity.ShowsAdminFeatures, children, fallback)
}

// CustomerOnly renders children for customers and impersonating admins.
func CustomerOnly(children, fallback templ.Component) templ.Component {
	return gate(domain.EffectiveIdentity.ActsAsCustomer, children, fallback)
}

// RoleSwitch renders the admin variant while viewing as admin and the
// customer variant while acting as a customer. Anonymous renders nothing.
func RoleSwitch(admin, customer templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		id := middleware.IdentityFromContext(ctx)
		var c templ.Component
		switch {
		case id.ShowsAdminFeatures():
			c = admin
		case id.ActsAsCustomer():
			c = customer
		}
		if c == nil {
			return nil
		}
		return c.Render(ctx, w)
	})
}

// FeatureGate renders children when the feature table allows the raw role.
func FeatureGate(feature string, children, fallback templ.Component) templ.Component {
	return gate(func(id domain.EffectiveIdentity) bool {
		return id.IsAuthenticated() && permissions.CanAccessFeature(feature, id.IsAdmin())
	}, children, fallback)
}

// Impersonating renders children only while an admin acts as a customer.
func Impersonating(children templ.Component) templ.Component {
	return gate(func(id domain.EffectiveIdentity) bool {
		return id.Kind == domain.IdentityAdminImpersonating
	}, children, nil)
}
