package gorequest

import "github.com/elliothayes/gorequest/pkg/auth"

// Version is the module's reported client version, used to build the
// default User-Agent header.
const Version = "1.0"

// BasicAuth and BearerAuth re-export the common auth capabilities so
// callers don't need to import pkg/auth directly for the usual cases.
type (
	BasicAuth  = auth.Basic
	BearerAuth = auth.Bearer
)
