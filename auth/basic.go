package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// BasicAuthenticator sends HTTP basic credentials.
type BasicAuthenticator struct {
	username string
	password string
}

// NewBasicAuthenticator creates a basic authenticator.
func NewBasicAuthenticator(username, password string) *BasicAuthenticator {
	return &BasicAuthenticator{username: username, password: password}
}

// ParseAuth decodes an npm "_auth" value, the base64 encoding of "username:password".
func ParseAuth(encoded string) (*BasicAuthenticator, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode _auth: %w", err)
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, fmt.Errorf("decode _auth: expected username:password")
	}
	return NewBasicAuthenticator(username, password), nil
}

// ParsePassword builds a basic authenticator from an npm "username" and the
// base64 encoded "_password".
func ParsePassword(username, encodedPassword string) (*BasicAuthenticator, error) {
	password, err := base64.StdEncoding.DecodeString(encodedPassword)
	if err != nil {
		return nil, fmt.Errorf("decode _password: %w", err)
	}
	return NewBasicAuthenticator(username, string(password)), nil
}

// Authenticate sets the Authorization: Basic header.
func (a *BasicAuthenticator) Authenticate(req *http.Request) error {
	if a.username != "" || a.password != "" {
		req.SetBasicAuth(a.username, a.password)
	}
	return nil
}

// Type returns AuthTypeBasic.
func (a *BasicAuthenticator) Type() Type {
	return AuthTypeBasic
}
