package web

import (
	"net/url"
	"strings"
)

// SafeRedirectPath reports whether raw may be used as a post-login redirect
// target. Only same-origin relative paths qualify: the value must start with
// a single "/" and carry no scheme or host. Protocol-relative ("//evil.com")
// and backslash-smuggled ("/\evil.com") forms are rejected.
func SafeRedirectPath(raw string) bool {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return false
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// safeNext returns next if it is a safe redirect target, otherwise fallback.
func safeNext(next, fallback string) string {
	if SafeRedirectPath(next) {
		return next
	}
	return fallback
}
