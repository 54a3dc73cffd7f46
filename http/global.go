package http

import (
	"sync"
)

var (
	defaultClientOnce sync.Once
	defaultClient     *Client
)

// DefaultClient returns a process-wide client used when a registry is created
// without an explicit one, so connections are reused across registries.
func DefaultClient() *Client {
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(nil)
	})
	return defaultClient
}
