package auth

import (
	"net/http"
)

// BearerAuthenticator sends an npm _authToken.
type BearerAuthenticator struct {
	token string
}

// NewBearerAuthenticator creates a bearer authenticator for token.
func NewBearerAuthenticator(token string) *BearerAuthenticator {
	return &BearerAuthenticator{token: token}
}

// Authenticate sets the Authorization: Bearer header.
func (a *BearerAuthenticator) Authenticate(req *http.Request) error {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	return nil
}

// Type returns AuthTypeBearer.
func (a *BearerAuthenticator) Type() Type {
	return AuthTypeBearer
}
