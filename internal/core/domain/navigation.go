package domain

import "strings"

const (
	PathRoot        = "/"
	PathLogin       = "/login"
	PathSignup      = "/signup"
	PathRoleChooser = "/rolechooser"
	PathDashboard   = "/dashboard"
)

// NormalizePath strips query and fragment and any trailing slash.
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return PathRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = PathRoot
		}
	}
	return p
}

// NavigationTarget decides where the app should go for the given user and
// path. ok is false when the current path should be kept.
func NavigationTarget(user *CurrentUser, currentPath string) (target string, ok bool) {
	path := NormalizePath(currentPath)

	switch {
	case user == nil:
		if path == PathLogin || path == PathSignup {
			return "", false
		}
		return PathLogin, true

	case !user.Role.IsSet():
		if path == PathRoleChooser {
			return "", false
		}
		return PathRoleChooser, true

	default:
		switch path {
		case PathLogin, PathSignup, PathRoleChooser, PathRoot:
			return PathDashboard, true
		}
		return "", false
	}
}
