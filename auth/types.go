// Package auth attaches npm registry credentials to outgoing requests.
package auth

import (
	"net/http"
)

// Authenticator adds credentials to a registry request.
type Authenticator interface {
	// Authenticate adds authentication to the request
	Authenticate(req *http.Request) error
	// Type reports the kind of credentials.
	Type() Type
}

// Type represents the type of authentication.
type Type string

const (
	// AuthTypeNone indicates no authentication is required.
	AuthTypeNone Type = "none"
	// AuthTypeBearer indicates an npm _authToken.
	AuthTypeBearer Type = "bearer"
	// AuthTypeBasic indicates npm _auth or username/_password credentials.
	AuthTypeBasic Type = "basic"
)
