// Package auth implements the two credential checks the front controller
// applies before handing a request to the forwarding engine or the admin
// surface: bearer-token auth against the access key store, and HTTP Basic
// auth against the built-in admin credentials (see SPEC_FULL.md §4.4, §6).
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/procsl/llm-gateway/pkg/gwerrors"
	"github.com/procsl/llm-gateway/pkg/store"
)

// DefaultAdminUser and DefaultAdminPassword are the built-in admin
// credentials. They are intentionally weak and documented as such
// (SPEC_FULL.md §6) — operators are expected to replace them.
const (
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "admin"
)

// BearerAuthenticate validates the inbound Authorization: Bearer header
// against st's access keys and returns the authenticating key's display
// name. It returns an *gwerrors.AuthError when the header is missing or the
// token doesn't match any configured key.
func BearerAuthenticate(r *http.Request, st *store.Store) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &gwerrors.AuthError{Message: "missing bearer token"}
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", &gwerrors.AuthError{Message: "malformed authorization header"}
	}

	key, ok := st.Authenticate(token)
	if !ok {
		return "", &gwerrors.AuthError{Message: "invalid bearer token"}
	}
	return key.Name, nil
}

// AdminCredentials holds the admin surface's Basic auth credentials.
type AdminCredentials struct {
	Username string
	Password string
}

// Check validates r's HTTP Basic credentials against c in constant time.
func (c AdminCredentials) Check(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password)) == 1
	return userOK && passOK
}
