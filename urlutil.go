package gorequest

import (
	"net/url"
	"sort"
	"strings"

	"github.com/elliothayes/gorequest/pkg/errors"
)

func defaultPortForScheme(scheme string) int {
	if strings.EqualFold(scheme, "https") {
		return 443
	}
	return 80
}

// parseTargetURL parses rawURL and, per an Open Question in the redirect
// design, always re-parses from scratch rather than string-concatenating a
// relative Location onto a previously captured host/port.
func parseTargetURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewValidationError("invalid URL: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError("unsupported URL scheme: " + u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.NewValidationError("URL has no host")
	}
	return u, nil
}

// resolveRedirectURL resolves a Location header value against the URL of
// the response that carried it.
func resolveRedirectURL(base *url.URL, location string) (*url.URL, error) {
	locURL, err := url.Parse(location)
	if err != nil {
		return nil, errors.NewValidationError("invalid redirect location: " + err.Error())
	}
	resolved := base.ResolveReference(locURL)
	return parseTargetURL(resolved.String())
}

func portOf(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := parsePort(p); err == nil {
			return n
		}
	}
	return defaultPortForScheme(u.Scheme)
}

func parsePort(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errors.NewValidationError("invalid port")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// hostHeaderValue returns the Host header value: the hostname, with the
// port included unless it's the scheme's default.
func hostHeaderValue(u *url.URL) string {
	port := portOf(u)
	if port == defaultPortForScheme(u.Scheme) {
		return u.Hostname()
	}
	return u.Host
}

// pathWithQuery returns the request-target: path (or "/" if empty) plus an
// encoded query string, with extraParams merged in and form-urlencoded.
func pathWithQuery(u *url.URL, extraParams map[string]string) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	query := u.Query()
	keys := make([]string, 0, len(extraParams))
	for k := range extraParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.Set(k, extraParams[k])
	}

	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
