// Package permissions holds the static feature and screen permission tables
// and the route access rules. Tables are read-only after init; lookups are
// pure and first-match on duplicate keys.
//
// Unconfigured features and screens are allowed. This fail-open default is
// intentional and covered by tests.
package permissions

type ViewLevel string

const (
	ViewFull     ViewLevel = "full"
	ViewReadOnly ViewLevel = "readonly"
	ViewNone     ViewLevel = "none"
)

const (
	FeatureOrderKits          = "order_kits"
	FeatureOrderHistory       = "order_history"
	FeatureOrderExport        = "order_export"
	FeatureSiteManagement     = "site_management"
	FeatureCustomerManagement = "customer_management"
	FeatureImpersonation      = "impersonation"
	FeatureAuditLogs          = "audit_logs"
	FeatureProgramEnrollment  = "program_enrollment"
	FeatureBulkSiteImport     = "bulk_site_import"
)

type FeaturePermission struct {
	Feature      string
	AdminOnly    bool
	AdminView    ViewLevel
	CustomerView ViewLevel
	Description  string
}

var featurePermissions = []FeaturePermission{
	{Feature: FeatureOrderKits, AdminView: ViewFull, CustomerView: ViewFull, Description: "Order test kits for a site"},
	{Feature: FeatureOrderHistory, AdminView: ViewFull, CustomerView: ViewFull, Description: "Browse past orders"},
	{Feature: FeatureOrderExport, AdminView: ViewFull, CustomerView: ViewFull, Description: "Export order history as CSV"},
	{Feature: FeatureSiteManagement, AdminView: ViewFull, CustomerView: ViewReadOnly, Description: "Manage collection sites"},
	{Feature: FeatureCustomerManagement, AdminOnly: true, AdminView: ViewFull, CustomerView: ViewNone, Description: "Manage customer accounts"},
	{Feature: FeatureImpersonation, AdminOnly: true, AdminView: ViewFull, CustomerView: ViewNone, Description: "View the portal as a customer"},
	{Feature: FeatureAuditLogs, AdminOnly: true, AdminView: ViewReadOnly, CustomerView: ViewNone, Description: "Review the audit trail"},
	{Feature: FeatureProgramEnrollment, AdminOnly: true, AdminView: ViewFull, CustomerView: ViewNone, Description: "Enroll customers in testing programs"},
	{Feature: FeatureBulkSiteImport, AdminOnly: true, AdminView: ViewFull, CustomerView: ViewNone, Description: "Import sites from a spreadsheet"},
}

// FeaturePermissions returns a copy of the feature table.
func FeaturePermissions() []FeaturePermission {
	out := make([]FeaturePermission, len(featurePermissions))
	copy(out, featurePermissions)
	return out
}

func findFeature(feature string) (FeaturePermission, bool) {
	for _, p := range featurePermissions {
		if p.Feature == feature {
			return p, true
		}
	}
	return FeaturePermission{}, false
}

// CanAccessFeature allows unknown features, denies admin-only features to
// non-admins and allows everything else.
func CanAccessFeature(feature string, isAdmin bool) bool {
	p, ok := findFeature(feature)
	if !ok {
		return true
	}
	if p.AdminOnly && !isAdmin {
		return false
	}
	return true
}

// FeatureView returns the configured view level. Unknown features get full
// access, matching CanAccessFeature.
func FeatureView(feature string, isAdmin bool) ViewLevel {
	p, ok := findFeature(feature)
	if !ok {
		return ViewFull
	}
	if isAdmin {
		return p.AdminView
	}
	if p.AdminOnly {
		return ViewNone
	}
	return p.CustomerView
}
