package permissions

import "testing"

func TestTablesHaveNoDuplicates(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestCanAccessFeature_AdminOnlyRows(t *testing.T) {
	count := 0
	for _, p := range FeaturePermissions() {
		if !p.AdminOnly {
			continue
		}
		count++
		if CanAccessFeature(p.Feature, false) {
			t.Errorf("%s: non-admin must be denied", p.Feature)
		}
		if !CanAccessFeature(p.Feature, true) {
			t.Errorf("%s: admin must be allowed", p.Feature)
		}
	}
	if count == 0 {
		t.Fatal("expected at least one admin-only feature")
	}
}

func TestCanAccessFeature_SharedRows(t *testing.T) {
	for _, p := range FeaturePermissions() {
		if p.AdminOnly {
			continue
		}
		if !CanAccessFeature(p.Feature, false) || !CanAccessFeature(p.Feature, true) {
			t.Errorf("%s: shared feature must be allowed for both roles", p.Feature)
		}
	}
}

// Unconfigured features are allowed for everyone. This documents the
// fail-open default; flipping it is a product decision.
func TestCanAccessFeature_UnknownFailsOpen(t *testing.T) {
	for _, feature := range []string{"", "lab_results_beta", "ORDER_KITS"} {
		if !CanAccessFeature(feature, false) {
			t.Errorf("%q: expected allow for non-admin", feature)
		}
		if !CanAccessFeature(feature, true) {
			t.Errorf("%q: expected allow for admin", feature)
		}
	}
}

func TestFeatureView(t *testing.T) {
	tests := []struct {
		feature string
		isAdmin bool
		want    ViewLevel
	}{
		{FeatureSiteManagement, false, ViewReadOnly},
		{FeatureSiteManagement, true, ViewFull},
		{FeatureAuditLogs, true, ViewReadOnly},
		{FeatureAuditLogs, false, ViewNone},
		{"unconfigured", false, ViewFull},
	}
	for _, tt := range tests {
		if got := FeatureView(tt.feature, tt.isAdmin); got != tt.want {
			t.Errorf("FeatureView(%q, %v) = %q, want %q", tt.feature, tt.isAdmin, got, tt.want)
		}
	}
}

func TestCanAccessScreen(t *testing.T) {
	tests := []struct {
		path    string
		isAdmin bool
		want    bool
	}{
		{"/", false, true},
		{"/orders", false, true},
		{"/orders/", false, true},
		{"/admin/customers", false, false},
		{"/admin/customers", true, true},
		{"/programs/single-site", false, false},
		{"/programs/single-site", true, true},
		{"/reports/unlisted", false, true},
	}
	for _, tt := range tests {
		if got := CanAccessScreen(tt.path, tt.isAdmin); got != tt.want {
			t.Errorf("CanAccessScreen(%q, %v) = %v, want %v", tt.path, tt.isAdmin, got, tt.want)
		}
	}
}

func TestRequiresCustomerContext(t *testing.T) {
	tests := map[string]bool{
		"/":                 false,
		"/orders":           true,
		"/sites":            true,
		"/order-kits":       true,
		"/admin/customers":  false,
		"/not-in-the-table": false,
	}
	for path, want := range tests {
		if got := RequiresCustomerContext(path); got != want {
			t.Errorf("RequiresCustomerContext(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRouteAccess(t *testing.T) {
	tests := map[string]Access{
		"/auth/signin":          AccessPublic,
		"/auth/callback":        AccessPublic,
		"/auth":                 AccessPublic,
		"/health/ready":         AccessPublic,
		"/metrics":              AccessPublic,
		"/admin/customers":      AccessAdmin,
		"/admin":                AccessAdmin,
		"/programs/single-site": AccessAdmin,
		"/administrator":        AccessAuthenticated,
		"/authors":              AccessAuthenticated,
		"/":                     AccessAuthenticated,
		"/orders":               AccessAuthenticated,
	}
	for path, want := range tests {
		if got := RouteAccess(path); got != want {
			t.Errorf("RouteAccess(%q) = %v, want %v", path, got, want)
		}
	}
}
