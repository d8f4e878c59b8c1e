package handler

import "testing"

func TestSafeCallback(t *testing.T) {
	tests := map[string]string{
		"":                             "/",
		"/orders?status=pending":       "/orders?status=pending",
		"/programs/single-site":        "/programs/single-site",
		"https://evil.example/orders":  "/",
		"//evil.example/orders":        "/",
		`/\evil.example`:               "/",
		"orders":                       "/",
		"/auth/signin?callbackUrl=%2F": "/",
		"javascript:alert(1)":          "/",
	}
	for raw, want := range tests {
		if got := safeCallback(raw); got != want {
			t.Errorf("safeCallback(%q) = %q, want %q", raw, got, want)
		}
	}
}
