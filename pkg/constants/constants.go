// Package constants defines the default timeouts and limits shared by the
// session and pool packages.
package constants

import "time"

// Connection timeouts and limits
const (
	DefaultIdleTimeout = 90 * time.Second
	DefaultConnTimeout = 10 * time.Second
	DefaultReadTimeout = 30 * time.Second
)

// MaxContentLength caps the Content-Length a fixed-length body parse will
// honor; anything larger is rejected as a protocol error rather than
// attempting to buffer it.
const MaxContentLength = 1024 * 1024 * 1024 // 1GiB
