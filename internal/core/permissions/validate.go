package permissions

import "fmt"

// Validate reports duplicate keys in the tables. Lookups are first-match, so
// a duplicate row would silently never apply.
func Validate() error {
	seen := make(map[string]bool, len(featurePermissions))
	for _, p := range featurePermissions {
		if seen[p.Feature] {
			return fmt.Errorf("duplicate feature permission %q", p.Feature)
		}
		seen[p.Feature] = true
	}

	seen = make(map[string]bool, len(screenPermissions))
	for _, p := range screenPermissions {
		if seen[p.Path] {
			return fmt.Errorf("duplicate screen permission %q", p.Path)
		}
		seen[p.Path] = true
	}
	return nil
}
