package permissions

import "strings"

type ScreenPermission struct {
	Path               string
	AdminOnly          bool
	CustomerVisible    bool
	RequiresCustomerID bool
	Description        string
}

var screenPermissions = []ScreenPermission{
	{Path: "/", CustomerVisible: true, Description: "Dashboard"},
	{Path: "/orders", CustomerVisible: true, RequiresCustomerID: true, Description: "Order history"},
	{Path: "/orders/export.csv", CustomerVisible: true, RequiresCustomerID: true, Description: "Order export"},
	{Path: "/order-kits", CustomerVisible: true, RequiresCustomerID: true, Description: "Order test kits"},
	{Path: "/sites", CustomerVisible: true, RequiresCustomerID: true, Description: "Sites"},
	{Path: "/admin/customers", AdminOnly: true, Description: "Customer accounts"},
	{Path: "/programs/single-site", AdminOnly: true, Description: "Single-site program enrollment"},
	{Path: "/programs/multi-site", AdminOnly: true, Description: "Multi-site program enrollment"},
}

// ScreenPermissions returns a copy of the screen table.
func ScreenPermissions() []ScreenPermission {
	out := make([]ScreenPermission, len(screenPermissions))
	copy(out, screenPermissions)
	return out
}

func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

func findScreen(path string) (ScreenPermission, bool) {
	path = normalizePath(path)
	for _, p := range screenPermissions {
		if p.Path == path {
			return p, true
		}
	}
	return ScreenPermission{}, false
}

// CanAccessScreen allows unknown paths and denies non-admins screens that are
// admin-only or hidden from customers.
func CanAccessScreen(path string, isAdmin bool) bool {
	p, ok := findScreen(path)
	if !ok || isAdmin {
		return true
	}
	return !p.AdminOnly && p.CustomerVisible
}

// RequiresCustomerContext reports whether the page needs an active customer.
func RequiresCustomerContext(path string) bool {
	p, ok := findScreen(path)
	return ok && p.RequiresCustomerID
}
