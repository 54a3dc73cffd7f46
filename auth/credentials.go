package auth

import (
	"net/url"
	"sort"
	"strings"
)

// Credentials maps nerf-darted registry prefixes ("//host/path/") to authenticators.
type Credentials struct {
	byPrefix map[string]Authenticator
}

// NewCredentials returns an empty credential set.
func NewCredentials() *Credentials {
	return &Credentials{byPrefix: make(map[string]Authenticator)}
}

// Set registers a for prefix, replacing earlier credentials.
func (c *Credentials) Set(prefix string, a Authenticator) {
	c.byPrefix[prefix] = a
}

// Len returns the number of configured prefixes.
func (c *Credentials) Len() int {
	return len(c.byPrefix)
}

// For returns the authenticator of the longest prefix matching rawURL, or nil.
func (c *Credentials) For(rawURL string) Authenticator {
	nerfed, ok := NerfDart(rawURL)
	if !ok {
		return nil
	}

	prefixes := make([]string, 0, len(c.byPrefix))
	for prefix := range c.byPrefix {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, prefix := range prefixes {
		if strings.HasPrefix(nerfed, prefix) {
			return c.byPrefix[prefix]
		}
	}
	return nil
}

// NerfDart strips scheme, credentials, query and fragment from rawURL,
// leaving "//host/path".
func NerfDart(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	return "//" + u.Host + u.EscapedPath(), true
}
