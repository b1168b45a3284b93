package gorequest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetURLRejectsBadScheme(t *testing.T) {
	_, err := parseTargetURL("ftp://example.com/file")
	assert.Error(t, err)
}

func TestParseTargetURLRejectsMissingHost(t *testing.T) {
	_, err := parseTargetURL("http:///path")
	assert.Error(t, err)
}

func TestHostHeaderValueOmitsDefaultPort(t *testing.T) {
	u, err := parseTargetURL("http://example.com:80/x")
	require.NoError(t, err)
	assert.Equal(t, "example.com", hostHeaderValue(u))

	u, err = parseTargetURL("http://example.com:8080/x")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", hostHeaderValue(u))

	u, err = parseTargetURL("https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "example.com", hostHeaderValue(u))
}

func TestPathWithQueryMergesExtraParams(t *testing.T) {
	u, err := parseTargetURL("http://example.com/search?q=go")
	require.NoError(t, err)

	got := pathWithQuery(u, map[string]string{"page": "2"})
	assert.Equal(t, "/search?page=2&q=go", got)
}

func TestPathWithQueryDefaultsToSlash(t *testing.T) {
	u, err := parseTargetURL("http://example.com")
	require.NoError(t, err)
	assert.Equal(t, "/", pathWithQuery(u, nil))
}

func TestResolveRedirectURLRelative(t *testing.T) {
	base, err := parseTargetURL("http://example.com/a/b")
	require.NoError(t, err)

	next, err := resolveRedirectURL(base, "/c")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/c", next.String())
}

func TestResolveRedirectURLAbsolute(t *testing.T) {
	base, err := parseTargetURL("http://example.com/a")
	require.NoError(t, err)

	next, err := resolveRedirectURL(base, "https://other.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://other.com/x", next.String())
}

func TestPortOfDefaults(t *testing.T) {
	u, err := parseTargetURL("http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, 80, portOf(u))

	u, err = parseTargetURL("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, 443, portOf(u))

	u, err = parseTargetURL("https://example.com:9000/")
	require.NoError(t, err)
	assert.Equal(t, 9000, portOf(u))
}
