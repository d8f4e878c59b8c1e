package permissions

import "strings"

type Access int

const (
	AccessAuthenticated Access = iota
	AccessPublic
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessAdmin:
		return "admin"
	default:
		return "authenticated"
	}
}

const SignInPath = "/auth/signin"

var (
	publicPrefixes = []string{"/auth", "/health", "/metrics", "/static"}

	// Customer sign-in is disabled, so programs are admin-only for now.
	adminPrefixes = []string{"/admin", "/programs"}
)

// RouteAccess classifies a request path by prefix.
func RouteAccess(path string) Access {
	for _, prefix := range publicPrefixes {
		if hasPathPrefix(path, prefix) {
			return AccessPublic
		}
	}
	for _, prefix := range adminPrefixes {
		if hasPathPrefix(path, prefix) {
			return AccessAdmin
		}
	}
	return AccessAuthenticated
}

// hasPathPrefix matches whole segments, so /administrator is not /admin.
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
