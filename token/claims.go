package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the typ claim. Verification rejects a
// token presented as the wrong kind, so an access token can never be fed
// into the rotation path.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessClaims is the claim set of a short-lived access credential.
// SubjectID maps to the registered sub claim and TokenID to jti.
//
// AccessClaims instances are intended to be built at issuance time and then
// treated as immutable.
type AccessClaims struct {
	TenantID  string `json:"tid"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject identifier (registered sub claim).
func (c *AccessClaims) SubjectID() string {
	return c.Subject
}

// TokenID returns the credential instance identifier (registered jti claim).
func (c *AccessClaims) TokenID() string {
	return c.ID
}

// RefreshClaims is the claim set of a long-lived refresh credential.
// SessionID groups every refresh credential ever issued for one login
// session; TokenID (jti) identifies this particular credential instance.
//
// RefreshClaims instances are intended to be built at issuance time and then
// treated as immutable.
type RefreshClaims struct {
	TenantID  string `json:"tid"`
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// SubjectID returns the subject identifier (registered sub claim).
func (c *RefreshClaims) SubjectID() string {
	return c.Subject
}

// TokenID returns the credential instance identifier (registered jti claim).
func (c *RefreshClaims) TokenID() string {
	return c.ID
}
