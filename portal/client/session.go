package client

import (
	"fmt"
	"mime"
	"strings"

	"github.com/portalcraft/pagesapi/portal/syntax"
)

// Decides whether a successful-looking response really came from the requested resource, or from a sign-in page served because the session expired.
type SessionValidator interface {
	ValidateSession(resp *Response) error
}

// Adapter to allow the use of ordinary functions as a [SessionValidator].
type SessionValidatorFunc func(resp *Response) error

func (f SessionValidatorFunc) ValidateSession(resp *Response) error {
	return f(resp)
}

// Sign-in page paths used by [LoginRedirectValidator] when none are configured.
var DefaultLoginPaths = []string{"/SignIn", "/Account/Login"}

// Flags responses which were redirected to a sign-in page, or which are HTML when JSON was requested.
type LoginRedirectValidator struct {
	// Path prefixes of sign-in pages, matched case-insensitively against the final request path, with or without a leading language segment. Defaults to [DefaultLoginPaths].
	LoginPaths []string
}

func (v *LoginRedirectValidator) ValidateSession(resp *Response) error {
	if resp.HTTP == nil || resp.HTTP.Request == nil {
		return nil
	}
	finalReq := resp.HTTP.Request

	paths := v.LoginPaths
	if paths == nil {
		paths = DefaultLoginPaths
	}
	if finalReq.URL != nil {
		full := strings.ToLower(finalReq.URL.Path)
		unlocalized := strings.ToLower(stripLanguageSegment(finalReq.URL.Path))
		for _, lp := range paths {
			lp = strings.ToLower(lp)
			if lp != "" && (strings.HasPrefix(full, lp) || strings.HasPrefix(unlocalized, lp)) {
				return fmt.Errorf("request was redirected to sign-in page: %s", finalReq.URL.Path)
			}
		}
	}

	if strings.Contains(finalReq.Header.Get("Accept"), "application/json") {
		mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mt == "text/html" {
			return fmt.Errorf("expected JSON response, got HTML page")
		}
	}
	return nil
}

// Drops a leading language segment, as used by multi-language portals (eg "/en-US/SignIn" becomes "/SignIn"). Paths without one are returned unchanged.
func stripLanguageSegment(p string) string {
	seg, rest, ok := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	if !ok || seg == "" {
		return p
	}
	if _, err := syntax.ParseLanguage(seg); err != nil {
		return p
	}
	return "/" + rest
}
